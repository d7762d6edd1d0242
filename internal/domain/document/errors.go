package document

import "github.com/cloudfly/dian-service/internal/domain/shared"

// Persisted error codes for documents that end in ERROR or REJECTED
const (
	CodeProcessingError = "PROCESSING_ERROR"
	CodeConnectionError = "CONNECTION_ERROR"
	CodeParseError      = "PARSE_ERROR"
)

// Error taxonomy of the document pipeline
var (
	ErrValidation               = shared.NewDomainError("VALIDATION_ERROR", "electronic document event is malformed")
	ErrDuplicateEvent           = shared.NewDomainError("DUPLICATE_EVENT", "electronic document event already recorded")
	ErrConfigurationNotFound    = shared.NewDomainError("CONFIGURATION_NOT_FOUND", "no active DIAN configuration found")
	ErrConfigurationUnavailable = shared.NewDomainError("CONFIGURATION_UNAVAILABLE", "DIAN configuration service unavailable")
	ErrCertificate              = shared.NewDomainError("CERTIFICATE_ERROR", "signing credential could not be used")
	ErrTransport                = shared.NewDomainError("TRANSPORT_ERROR", "tax authority could not be reached")
	ErrBusinessRejection        = shared.NewDomainError("BUSINESS_REJECTION", "tax authority rejected the document")
	ErrProcessorNotRegistered   = shared.NewDomainError("PROCESSOR_NOT_REGISTERED", "no processor registered for document category")
	ErrImmutableDocument        = shared.NewDomainError("IMMUTABLE_DOCUMENT", "document is final and cannot be modified")
	ErrInvalidFingerprint       = shared.NewDomainError("INVALID_FINGERPRINT", "fiscal fingerprint could not be computed")
)
