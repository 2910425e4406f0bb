// Package ubl serializes a normalized invoice into a UBL 2.1 Invoice
// document following the Peppol BIS Billing 3.0 profile.
package ubl

import "encoding/xml"

// UBL namespace and profile identifiers for Peppol BIS Billing 3.0.
const (
	NamespaceInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NamespaceCAC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	CustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	ProfileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"

	// InvoiceTypeCode 380 is "commercial invoice" in UN/ECE code list 1001.
	InvoiceTypeCode = "380"
)

// Document is the UBL Invoice root. Field order follows the UBL schema
// sequence; encoding/xml emits elements in struct order.
type Document struct {
	XMLName  xml.Name `xml:"Invoice"`
	Xmlns    string   `xml:"xmlns,attr"`
	XmlnsCAC string   `xml:"xmlns:cac,attr"`
	XmlnsCBC string   `xml:"xmlns:cbc,attr"`

	CustomizationID      string `xml:"cbc:CustomizationID"`
	ProfileID            string `xml:"cbc:ProfileID"`
	ID                   string `xml:"cbc:ID"`
	IssueDate            string `xml:"cbc:IssueDate"`
	DueDate              string `xml:"cbc:DueDate,omitempty"`
	InvoiceTypeCode      string `xml:"cbc:InvoiceTypeCode"`
	DocumentCurrencyCode string `xml:"cbc:DocumentCurrencyCode"`

	AccountingSupplierParty PartyWrapper  `xml:"cac:AccountingSupplierParty"`
	AccountingCustomerParty PartyWrapper  `xml:"cac:AccountingCustomerParty"`
	PaymentMeans            *PaymentMeans `xml:"cac:PaymentMeans,omitempty"`
	TaxTotal                TaxTotal      `xml:"cac:TaxTotal"`
	LegalMonetaryTotal      MonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	InvoiceLines            []InvoiceLine `xml:"cac:InvoiceLine"`
}

// Amount is a monetary value; Peppol requires the currencyID attribute on
// every amount element.
type Amount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

type PartyWrapper struct {
	Party Party `xml:"cac:Party"`
}

type Party struct {
	PartyName        PartyName        `xml:"cac:PartyName"`
	PostalAddress    PostalAddress    `xml:"cac:PostalAddress"`
	PartyTaxScheme   *PartyTaxScheme  `xml:"cac:PartyTaxScheme,omitempty"`
	PartyLegalEntity PartyLegalEntity `xml:"cac:PartyLegalEntity"`
}

type PartyName struct {
	Name string `xml:"cbc:Name"`
}

type PostalAddress struct {
	StreetName string  `xml:"cbc:StreetName,omitempty"`
	CityName   string  `xml:"cbc:CityName,omitempty"`
	PostalZone string  `xml:"cbc:PostalZone,omitempty"`
	Country    Country `xml:"cac:Country"`
}

type Country struct {
	IdentificationCode string `xml:"cbc:IdentificationCode"`
}

type PartyTaxScheme struct {
	CompanyID string    `xml:"cbc:CompanyID"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

type TaxScheme struct {
	ID string `xml:"cbc:ID"`
}

type PartyLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
	CompanyID        string `xml:"cbc:CompanyID,omitempty"`
}

type PaymentMeans struct {
	PaymentMeansCode      string                 `xml:"cbc:PaymentMeansCode"`
	PaymentID             string                 `xml:"cbc:PaymentID,omitempty"`
	PayeeFinancialAccount *PayeeFinancialAccount `xml:"cac:PayeeFinancialAccount,omitempty"`
}

type PayeeFinancialAccount struct {
	ID                         string                      `xml:"cbc:ID"`
	FinancialInstitutionBranch *FinancialInstitutionBranch `xml:"cac:FinancialInstitutionBranch,omitempty"`
}

type FinancialInstitutionBranch struct {
	ID string `xml:"cbc:ID"`
}

type TaxTotal struct {
	TaxAmount   Amount        `xml:"cbc:TaxAmount"`
	TaxSubtotal []TaxSubtotal `xml:"cac:TaxSubtotal"`
}

type TaxSubtotal struct {
	TaxableAmount Amount      `xml:"cbc:TaxableAmount"`
	TaxAmount     Amount      `xml:"cbc:TaxAmount"`
	TaxCategory   TaxCategory `xml:"cac:TaxCategory"`
}

type TaxCategory struct {
	ID        string    `xml:"cbc:ID"`
	Percent   string    `xml:"cbc:Percent"`
	TaxScheme TaxScheme `xml:"cac:TaxScheme"`
}

type MonetaryTotal struct {
	LineExtensionAmount Amount `xml:"cbc:LineExtensionAmount"`
	TaxExclusiveAmount  Amount `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusiveAmount  Amount `xml:"cbc:TaxInclusiveAmount"`
	PayableAmount       Amount `xml:"cbc:PayableAmount"`
}

type InvoiceLine struct {
	ID                  string   `xml:"cbc:ID"`
	InvoicedQuantity    Quantity `xml:"cbc:InvoicedQuantity"`
	LineExtensionAmount Amount   `xml:"cbc:LineExtensionAmount"`
	Item                Item     `xml:"cac:Item"`
	Price               Price    `xml:"cac:Price"`
}

type Quantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type Item struct {
	Name                  string      `xml:"cbc:Name"`
	ClassifiedTaxCategory TaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

type Price struct {
	PriceAmount Amount `xml:"cbc:PriceAmount"`
}
