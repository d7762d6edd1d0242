package dian

import (
	"encoding/base64"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// SOAP namespaces
const (
	NamespaceSOAP = "http://schemas.xmlsoap.org/soap/envelope/"
	NamespaceWCF  = "http://wcf.dian.colombia"
)

// Operation names by document category
const (
	OperationSendBill   = "SendBillSync"
	OperationSendNomina = "SendNominaSync"
)

// operationFor returns the SOAP operation and endpoint path of a category
func operationFor(category document.Category) (operation, path string) {
	if category == document.CategoryPayroll {
		return OperationSendNomina, PayrollPath
	}
	return OperationSendBill, InvoicePath
}

// BuildEnvelope wraps the signed document in a SOAP request
func BuildEnvelope(signedXML []byte, operation, fileName string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", NamespaceSOAP)
	env.CreateAttr("xmlns:wcf", NamespaceWCF)
	env.CreateElement("soap:Header")

	op := env.CreateElement("soap:Body").CreateElement("wcf:" + operation)
	op.CreateElement("wcf:fileName").SetText(fileName)
	op.CreateElement("wcf:contentFile").SetText(base64.StdEncoding.EncodeToString(signedXML))

	doc.Indent(2)
	return doc.WriteToBytes()
}

func newFileName() string {
	return uuid.NewString() + ".xml"
}
