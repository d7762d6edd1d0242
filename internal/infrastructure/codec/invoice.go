package codec

import (
	"fmt"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// UBL 2.1 namespaces
const (
	NamespaceCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NamespaceCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NamespaceEXT = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"

	UBLVersion      = "UBL 2.1"
	CustomizationID = "10"
	ProfileID       = "DIAN 2.1"
	FingerprintName = "CUFE-SHA384"
)

type ublLayout struct {
	root            string
	namespace       string
	typeCodeTag     string
	defaultTypeCode string
	lineTag         string
	quantityTag     string
	totalTag        string
}

var layouts = map[document.Type]ublLayout{
	document.TypeInvoice: {
		root:            "Invoice",
		namespace:       "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2",
		typeCodeTag:     "cbc:InvoiceTypeCode",
		defaultTypeCode: "01",
		lineTag:         "cac:InvoiceLine",
		quantityTag:     "cbc:InvoicedQuantity",
		totalTag:        "cac:LegalMonetaryTotal",
	},
	document.TypeCreditNote: {
		root:            "CreditNote",
		namespace:       "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2",
		typeCodeTag:     "cbc:CreditNoteTypeCode",
		defaultTypeCode: "91",
		lineTag:         "cac:CreditNoteLine",
		quantityTag:     "cbc:CreditedQuantity",
		totalTag:        "cac:LegalMonetaryTotal",
	},
	document.TypeDebitNote: {
		root:            "DebitNote",
		namespace:       "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2",
		defaultTypeCode: "92",
		lineTag:         "cac:DebitNoteLine",
		quantityTag:     "cbc:DebitedQuantity",
		totalTag:        "cac:RequestedMonetaryTotal",
	},
}

// GenerateInvoiceXML renders an invoice, credit note or debit note. number is
// the already resolved document number; numbering supplies the technical key
// for the CUFE.
func (g *Generator) GenerateInvoiceXML(
	docType document.Type,
	payload *document.InvoicePayload,
	mode *document.OperationMode,
	numbering *document.NumberingRange,
	number string,
) (*Result, error) {
	if payload == nil {
		return nil, ErrMissingPayload
	}
	layout, ok := layouts[docType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, docType)
	}
	if number == "" {
		return nil, ErrMissingNumber
	}

	fields := NewInvoiceFingerprintFields(payload, numbering, number)
	if fields.EnvironmentFlag == "" {
		fields.EnvironmentFlag = AmbientCode(environmentOf(mode))
	}
	cufe, fallback := g.InvoiceFingerprint(fields)

	doc := newDocument()
	root := doc.CreateElement(layout.root)
	root.CreateAttr("xmlns", layout.namespace)
	root.CreateAttr("xmlns:cac", NamespaceCAC)
	root.CreateAttr("xmlns:cbc", NamespaceCBC)
	root.CreateAttr("xmlns:ext", NamespaceEXT)

	content := root.CreateElement("ext:UBLExtensions").
		CreateElement("ext:UBLExtension").
		CreateElement("ext:ExtensionContent")
	content.CreateComment(" signature placeholder ")

	addText(root, "cbc:UBLVersionID", UBLVersion)
	addText(root, "cbc:CustomizationID", CustomizationID)
	addText(root, "cbc:ProfileID", ProfileID)
	// the authority recomputes the CUFE with the declared ambient
	ambient := fields.EnvironmentFlag
	addText(root, "cbc:ProfileExecutionID", ambient)
	addText(root, "cbc:ID", number)
	id := addText(root, "cbc:UUID", cufe)
	id.CreateAttr("schemeID", ambient)
	id.CreateAttr("schemeName", FingerprintName)
	addText(root, "cbc:IssueDate", payload.IssueDate.String())
	addText(root, "cbc:IssueTime", payload.IssueTime.String())

	if layout.typeCodeTag != "" {
		typeCode := payload.InvoiceTypeCode
		if typeCode == "" {
			typeCode = layout.defaultTypeCode
		}
		addText(root, layout.typeCodeTag, typeCode)
	}
	for _, note := range payload.Notes {
		addText(root, "cbc:Note", note)
	}
	addText(root, "cbc:DocumentCurrencyCode", payload.Currency)
	addText(root, "cbc:LineCountNumeric", fmt.Sprintf("%d", len(payload.Lines)))

	if payload.OrderReference != nil {
		addText(root.CreateElement("cac:OrderReference"), "cbc:ID", *payload.OrderReference)
	}
	if ref := payload.BillingReference; ref != nil {
		appendBillingReference(root, ref)
	}

	appendParty(root, "cac:AccountingSupplierParty", &payload.Issuer)
	appendParty(root, "cac:AccountingCustomerParty", &payload.Customer)

	for _, payment := range payload.PaymentMeans {
		means := root.CreateElement("cac:PaymentMeans")
		addText(means, "cbc:ID", payment.PaymentMeansCode)
		addText(means, "cbc:PaymentMeansCode", payment.PaymentMeansCode)
		if payment.DueDate != nil {
			addText(means, "cbc:PaymentDueDate", payment.DueDate.String())
		}
	}

	totals := payload.Totals
	currency := payload.Currency
	taxTotal := root.CreateElement("cac:TaxTotal")
	addAmount(taxTotal, "cbc:TaxAmount", FormatAmount(totals.TotalTaxAmount), currency)

	monetary := root.CreateElement(layout.totalTag)
	addAmount(monetary, "cbc:LineExtensionAmount", FormatAmount(totals.LineExtensionAmount), currency)
	addAmount(monetary, "cbc:TaxExclusiveAmount", FormatAmount(totals.TaxExclusiveAmount), currency)
	addAmount(monetary, "cbc:TaxInclusiveAmount", FormatAmount(totals.TaxInclusiveAmount), currency)
	addAmount(monetary, "cbc:PayableAmount", FormatAmount(totals.PayableAmount), currency)

	for i := range payload.Lines {
		appendLine(root, layout, &payload.Lines[i], currency)
	}

	out, err := g.serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", layout.root, err)
	}

	g.logger.Debug("Invoice XML generated",
		zap.String("document_type", docType.String()),
		zap.String("number", number),
		zap.Int("size", len(out)),
	)

	return &Result{
		XML:                 out,
		Number:              number,
		Fingerprint:         cufe,
		FingerprintFallback: fallback,
	}, nil
}

func appendBillingReference(root *etree.Element, ref *document.BillingReference) {
	reference := root.CreateElement("cac:BillingReference").
		CreateElement("cac:InvoiceDocumentReference")
	addText(reference, "cbc:ID", ref.Number)
	if ref.Fingerprint != "" {
		addText(reference, "cbc:UUID", ref.Fingerprint).CreateAttr("schemeName", FingerprintName)
	}
	if ref.IssueDate != nil {
		addText(reference, "cbc:IssueDate", ref.IssueDate.String())
	}
}

func appendParty(root *etree.Element, tag string, party *document.Party) {
	p := root.CreateElement(tag).CreateElement("cac:Party")

	id := addText(p.CreateElement("cac:PartyIdentification"), "cbc:ID", party.IdentificationNumber)
	id.CreateAttr("schemeName", party.IdentificationType)
	if party.CheckDigit != nil {
		id.CreateAttr("schemeID", *party.CheckDigit)
	}

	addText(p.CreateElement("cac:PartyName"), "cbc:Name", party.LegalName)

	if addr := party.Address; addr != nil {
		a := p.CreateElement("cac:PhysicalLocation").CreateElement("cac:Address")
		if addr.CityCode != "" {
			addText(a, "cbc:ID", addr.CityCode)
		}
		addText(a, "cbc:CityName", addr.CityName)
		addText(a, "cbc:CountrySubentity", addr.DepartmentName)
		addText(a.CreateElement("cac:AddressLine"), "cbc:Line", addr.AddressLine)
		addText(a.CreateElement("cac:Country"), "cbc:IdentificationCode", addr.CountryCode)
	}

	scheme := p.CreateElement("cac:PartyTaxScheme")
	addText(scheme, "cbc:RegistrationName", party.LegalName)
	addText(scheme.CreateElement("cac:TaxScheme"), "cbc:ID", party.TaxScheme)

	if party.Email != nil || party.Telephone != nil {
		contact := p.CreateElement("cac:Contact")
		if party.Telephone != nil {
			addText(contact, "cbc:Telephone", *party.Telephone)
		}
		if party.Email != nil {
			addText(contact, "cbc:ElectronicMail", *party.Email)
		}
	}
}

func appendLine(root *etree.Element, layout ublLayout, line *document.Line, currency string) {
	el := root.CreateElement(layout.lineTag)
	addText(el, "cbc:ID", fmt.Sprintf("%d", line.LineNumber))
	qty := addText(el, layout.quantityTag, FormatAmount(line.Quantity))
	if line.UnitCode != "" {
		qty.CreateAttr("unitCode", line.UnitCode)
	}
	extension := line.ExtensionAmount()
	addAmount(el, "cbc:LineExtensionAmount", FormatAmount(extension), currency)

	tax := el.CreateElement("cac:TaxTotal")
	addAmount(tax, "cbc:TaxAmount", FormatAmount(line.TaxAmount), currency)
	sub := tax.CreateElement("cac:TaxSubtotal")
	addAmount(sub, "cbc:TaxableAmount", FormatAmount(extension), currency)
	addAmount(sub, "cbc:TaxAmount", FormatAmount(line.TaxAmount), currency)
	category := sub.CreateElement("cac:TaxCategory")
	addText(category, "cbc:Percent", FormatAmount(line.TaxPercent))
	addText(category.CreateElement("cac:TaxScheme"), "cbc:ID", TaxTypeIVA)

	item := el.CreateElement("cac:Item")
	addText(item, "cbc:Description", line.Description)
	if line.ItemCode != nil {
		addText(item.CreateElement("cac:StandardItemIdentification"), "cbc:ID", *line.ItemCode)
	}

	addAmount(el.CreateElement("cac:Price"), "cbc:PriceAmount", FormatAmount(line.UnitPrice), currency)
}

func addAmount(parent *etree.Element, tag, amount, currency string) {
	addText(parent, tag, amount).CreateAttr("currencyID", currency)
}

// AmbientCode maps an environment to the DIAN ambient code carried in
// ProfileExecutionID and hashed into the CUFE
func AmbientCode(env document.Environment) string {
	if env == document.EnvironmentProduction {
		return "1"
	}
	return "2"
}

func environmentOf(mode *document.OperationMode) document.Environment {
	if mode == nil {
		return document.EnvironmentTest
	}
	return mode.Environment
}
