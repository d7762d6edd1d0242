package codec

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Payroll schema constants
const (
	NamespacePayroll   = "http://www.dian.gov.co/contratos/facturaelectronica/v1/nom"
	NamespaceXSI       = "http://www.w3.org/2001/XMLSchema-instance"
	PayrollVersion     = "V1.0"
	PayrollCurrency    = "COP"
	DefaultPayrollType = "102"
	WorkerTypeEmployee = "01"
)

// GeneratePayrollXML renders an individual payroll receipt (NominaIndividual)
func (g *Generator) GeneratePayrollXML(
	payload *document.PayrollPayload,
	mode *document.OperationMode,
	number string,
) (*Result, error) {
	if payload == nil {
		return nil, ErrMissingPayload
	}
	if number == "" {
		return nil, ErrMissingNumber
	}

	cune, fallback := g.PayrollFingerprint(NewPayrollFingerprintFields(payload, number))

	doc := newDocument()
	root := doc.CreateElement("NominaIndividual")
	root.CreateAttr("xmlns", NamespacePayroll)
	root.CreateAttr("xmlns:xsi", NamespaceXSI)

	general := root.CreateElement("General")
	addText(general, "Version", PayrollVersion)
	addText(general, "Ambiente", AmbientCode(environmentOf(mode)))
	addText(general, "Moneda", PayrollCurrency)
	payrollType := payload.PayrollType
	if payrollType == "" {
		payrollType = DefaultPayrollType
	}
	addText(general, "TipoNomina", payrollType)
	addText(general, "Numero", number)
	addText(general, "Secuencia", payload.PayrollSequence)
	addText(general, "FechaEmision", payload.IssueDate.String())
	addText(general, "FechaInicio", payload.Period.StartDate.String())
	addText(general, "FechaFin", payload.Period.EndDate.String())
	addText(general, "TiempoPago", payload.Period.Periodicity)
	addText(general, "CUNE", cune)

	employer := &payload.Employer
	emp := root.CreateElement("Empleador")
	addText(emp, "RazonSocial", employer.LegalName)
	addText(emp, "TipoDocumento", employer.IdentificationType)
	addText(emp, "NumeroDocumento", employer.IdentificationNumber)
	if employer.CheckDigit != nil {
		addText(emp, "DV", *employer.CheckDigit)
	}
	if employer.Address != nil {
		addText(emp, "Ciudad", employer.Address.CityName)
		addText(emp, "Direccion", employer.Address.AddressLine)
	}

	employee := &payload.Employee
	worker := root.CreateElement("Trabajador")
	addText(worker, "TipoTrabajador", WorkerTypeEmployee)
	addText(worker, "TipoDocumento", employee.IdentificationType)
	addText(worker, "NumeroDocumento", employee.IdentificationNumber)
	addText(worker, "PrimerApellido", employee.LastName)
	addText(worker, "PrimerNombre", employee.FirstName)
	place := worker.CreateElement("LugarTrabajo")
	if employer.Address != nil && employer.Address.CityCode != "" {
		addText(place, "MunicipioCiudad", employer.Address.CityCode)
	}
	addText(worker, "TipoContrato", employee.ContractType)
	addText(worker, "Sueldo", FormatAmount(employee.Salary))

	appendEntries(root, "Devengados", payload.Earnings)
	appendEntries(root, "Deducciones", payload.Deductions)
	appendEntries(root, "Provisiones", payload.Provisions)

	totals := payload.Totals
	addText(root, "DevengadosTotal", FormatAmount(totals.TotalEarnings))
	addText(root, "DeduccionesTotal", FormatAmount(totals.TotalDeductions))
	addText(root, "ComprobanteTotal", FormatAmount(totals.NetPayment))

	out, err := g.serialize(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize NominaIndividual: %w", err)
	}

	g.logger.Debug("Payroll XML generated",
		zap.String("number", number),
		zap.Int("size", len(out)),
	)

	return &Result{
		XML:                 out,
		Number:              number,
		Fingerprint:         cune,
		FingerprintFallback: fallback,
	}, nil
}

// appendEntries writes a group with its computed total followed by one
// element per entry, named by the entry type
func appendEntries(root *etree.Element, tag string, entries []document.PayrollEntry) {
	if len(entries) == 0 {
		return
	}
	group := root.CreateElement(tag)
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	addText(group, "Total", FormatAmount(total))
	for _, e := range entries {
		addText(group, e.Type, FormatAmount(e.Amount))
	}
}
