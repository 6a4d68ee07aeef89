package parser

import (
	"strings"

	"fisco/internal/document/models"
)

// typeRules maps detected keywords to a document type, checked in order so
// the more specific fiscal documents win over generic ones.
var typeRules = []struct {
	keywords []string
	docType  models.DocumentType
}{
	{[]string{"DANFE", "NOTA FISCAL", "NF-E", "NFE"}, models.TypeNotaFiscal},
	{[]string{"DARF", "GPS", "GUIA DE RECOLHIMENTO", "GUIA"}, models.TypeGuia},
	{[]string{"BOLETO", "LINHA DIGITAVEL", "LINHA DIGITÁVEL"}, models.TypeBoleto},
	{[]string{"EXTRATO"}, models.TypeExtrato},
	{[]string{"RECIBO"}, models.TypeRecibo},
}

// Classify assigns a document type from keywords in the token stream.
// Unknown documents classify as TypeUnknown; classification failure is not a
// parse failure since the reconciliation engine can still match on amount,
// date and counterparty.
func Classify(tokens []models.Token) models.DocumentType {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.ToUpper(tok.Text))
	}
	text := sb.String()

	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.docType
			}
		}
	}
	return models.TypeUnknown
}
