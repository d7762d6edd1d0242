package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudfly/dian-service/internal/domain/document"
)

// Sample identifiers shared across tests
const (
	TenantID  int64 = 10
	CompanyID int64 = 1
)

// Ptr returns a pointer to v
func Ptr[T any](v T) *T { return &v }

// SampleInvoicePayload returns a complete invoice without a caller-supplied
// number, so the numbering range decides it
func SampleInvoicePayload() *document.InvoicePayload {
	return &document.InvoicePayload{
		IssueDate:       document.NewDate(2024, time.March, 15),
		IssueTime:       document.NewClock(10, 30, 0),
		InvoiceTypeCode: "01",
		Currency:        "COP",
		Issuer: document.Party{
			IdentificationType:   "31",
			IdentificationNumber: "900123456",
			CheckDigit:           Ptr("7"),
			LegalName:            "Cloudfly S.A.S.",
			TaxScheme:            "01",
			Email:                Ptr("facturacion@cloudfly.co"),
			Address: &document.Address{
				CityCode:       "11001",
				CityName:       "Bogotá",
				DepartmentName: "Cundinamarca",
				AddressLine:    "Calle 100 # 10-20",
				CountryCode:    "CO",
			},
		},
		Customer: document.Party{
			IdentificationType:   "13",
			IdentificationNumber: "1020304050",
			LegalName:            "Pérez & Hijos",
			TaxScheme:            "ZZ",
			Telephone:            Ptr("3001234567"),
		},
		Lines: []document.Line{
			{
				LineNumber:  1,
				Description: "Servicio de soporte <mensual>",
				ItemCode:    Ptr("SUP-01"),
				UnitCode:    "94",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.RequireFromString("50000"),
				TaxPercent:  decimal.NewFromInt(19),
				TaxAmount:   decimal.RequireFromString("19000"),
			},
		},
		Totals: document.Totals{
			LineExtensionAmount: decimal.RequireFromString("100000"),
			TaxExclusiveAmount:  decimal.RequireFromString("100000"),
			TaxInclusiveAmount:  decimal.RequireFromString("119000"),
			TotalTaxAmount:      decimal.RequireFromString("19000"),
			PayableAmount:       decimal.RequireFromString("119000"),
		},
		PaymentMeans: []document.Payment{
			{PaymentMeansCode: "10", DueDate: Ptr(document.NewDate(2024, time.April, 15))},
		},
	}
}

// SampleInvoiceEvent returns a valid INVOICE event
func SampleInvoiceEvent(eventID string) *document.ElectronicDocumentEvent {
	return &document.ElectronicDocumentEvent{
		EventID:          eventID,
		DocumentType:     document.TypeInvoice,
		Origin:           document.OriginERP,
		TenantID:         TenantID,
		CompanyID:        CompanyID,
		SourceSystem:     "erp",
		SourceDocumentID: "INV-" + eventID,
		Timestamp:        document.EventTime{Time: time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)},
		Invoice:          SampleInvoicePayload(),
	}
}

// SamplePayrollPayload returns a complete payroll receipt
func SamplePayrollPayload() *document.PayrollPayload {
	return &document.PayrollPayload{
		PayrollReceiptID: "NE-500",
		PayrollSequence:  "500",
		PayrollType:      "102",
		IssueDate:        document.NewDate(2024, time.March, 31),
		Period: document.PayrollPeriod{
			StartDate:   document.NewDate(2024, time.March, 1),
			EndDate:     document.NewDate(2024, time.March, 31),
			Periodicity: "5",
		},
		Employer: document.Party{
			IdentificationType:   "31",
			IdentificationNumber: "900123456",
			CheckDigit:           Ptr("7"),
			LegalName:            "Cloudfly S.A.S.",
			Address: &document.Address{
				CityCode:    "11001",
				CityName:    "Bogotá",
				AddressLine: "Calle 100 # 10-20",
			},
		},
		Employee: document.Employee{
			IdentificationType:   "13",
			IdentificationNumber: "79999999",
			FirstName:            "Ana",
			LastName:             "Gómez",
			ContractType:         "1",
			Salary:               decimal.RequireFromString("3000000"),
		},
		Earnings: []document.PayrollEntry{
			{Type: "Basico", Amount: decimal.RequireFromString("3000000")},
			{Type: "Transporte", Amount: decimal.RequireFromString("162000")},
		},
		Deductions: []document.PayrollEntry{
			{Type: "Salud", Amount: decimal.RequireFromString("120000")},
			{Type: "FondoPension", Amount: decimal.RequireFromString("120000")},
		},
		Totals: document.PayrollTotals{
			TotalEarnings:   decimal.RequireFromString("3162000"),
			TotalDeductions: decimal.RequireFromString("240000"),
			NetPayment:      decimal.RequireFromString("2922000"),
		},
	}
}

// SamplePayrollEvent returns a valid PAYROLL event
func SamplePayrollEvent(eventID string) *document.ElectronicDocumentEvent {
	return &document.ElectronicDocumentEvent{
		EventID:          eventID,
		DocumentType:     document.TypePayroll,
		Origin:           document.OriginHR,
		TenantID:         TenantID,
		CompanyID:        CompanyID,
		SourceSystem:     "hr",
		SourceDocumentID: "PAY-" + eventID,
		Timestamp:        document.EventTime{Time: time.Date(2024, time.March, 31, 18, 0, 0, 0, time.UTC)},
		Payroll:          SamplePayrollPayload(),
	}
}

// SampleOperationMode returns an active TEST operation mode pointing at
// credentialPath
func SampleOperationMode(credentialPath, password string) *document.OperationMode {
	return &document.OperationMode{
		ID:                  7,
		TenantID:            TenantID,
		CompanyID:           CompanyID,
		DocumentType:        string(document.TypeInvoice),
		Environment:         document.EnvironmentTest,
		CredentialReference: credentialPath,
		CredentialPassword:  password,
		SoftwareID:          "soft-123",
		PIN:                 "12345",
	}
}

// SampleNumberingRange returns the FE range whose current pointer is 1001
func SampleNumberingRange() *document.NumberingRange {
	return &document.NumberingRange{
		ID:              3,
		Prefix:          "FE",
		NumberRangeFrom: 1,
		NumberRangeTo:   5000,
		CurrentNumber:   1001,
		TechnicalKey:    "fc8eac422eba16e22ffd8c6f94b3f40a6e38162c",
	}
}
