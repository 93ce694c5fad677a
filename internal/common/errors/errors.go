// Package errors provides standardized error handling for the certification portal
// and for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Assessment / form errors
const (
	ErrCodeAssessmentValidationFailed ErrorCode = "ASSESSMENT_VALIDATION_FAILED"
	ErrCodeScoreOutOfRange            ErrorCode = "SCORE_OUT_OF_RANGE"
	ErrCodeAttachmentRejected         ErrorCode = "ATTACHMENT_REJECTED"
	ErrCodeSubmissionIncomplete       ErrorCode = "SUBMISSION_INCOMPLETE"

	ErrCodeDraftPersistenceFailed ErrorCode = "DRAFT_PERSISTENCE_FAILED"
	ErrCodeDraftCorrupt           ErrorCode = "DRAFT_CORRUPT"

	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"
	ErrCodeCatalogEmpty      ErrorCode = "CATALOG_EMPTY"
	ErrCodeCatalogNotReady   ErrorCode = "CATALOG_NOT_READY"

	ErrCodeReviewDecisionInvalid ErrorCode = "REVIEW_DECISION_INVALID"
	ErrCodeBusinessRule          ErrorCode = "BUSINESS_RULE_VIOLATION"

	ErrCodeSessionInvalid   ErrorCode = "SESSION_INVALID"
	ErrCodeOTPInvalid       ErrorCode = "OTP_INVALID"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
)

// Infrastructure errors shared by workers and services
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeInvalidQueryType         ErrorCode = "INVALID_QUERY_TYPE"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeInvalidFilterFormat         ErrorCode = "INVALID_FILTER_FORMAT"
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"

	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeStorageFailed          ErrorCode = "OBJECT_STORAGE_FAILED"
	ErrCodeEventPublishFailed     ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeWorkflowFailed         ErrorCode = "WORKFLOW_START_FAILED"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error categories used by the HTTP layer and in job failure logs.
const (
	CategoryValidation  = "VALIDATION"
	CategoryPersistence = "PERSISTENCE"
	CategoryRemote      = "REMOTE"
	CategoryAuth        = "AUTH"
	CategoryBusiness    = "BUSINESS"
	CategoryNotFound    = "NOT_FOUND"
	CategoryOther       = "OTHER"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewAssessmentValidationError is returned for rejected user input; prior state is kept.
func NewAssessmentValidationError(details string) *StandardError {
	return newError(ErrCodeAssessmentValidationFailed, "Assessment input is invalid", details, false, nil)
}

// NewAttachmentRejectedError creates a non-retryable attachment error.
func NewAttachmentRejectedError(fileName, reason string) *StandardError {
	return newError(ErrCodeAttachmentRejected, "Attachment rejected", fmt.Sprintf("file: %s, reason: %s", fileName, reason), false, nil).
		WithMetadata("fileName", fileName)
}

// NewSubmissionIncompleteError lists what blocks a submission.
func NewSubmissionIncompleteError(missing []string) *StandardError {
	return newError(ErrCodeSubmissionIncomplete, "Application is not ready for submission", fmt.Sprintf("missing: %v", missing), false, nil).
		WithMetadata("missing", missing)
}

// NewDraftPersistenceError reports a failed draft write. The storage may be full.
func NewDraftPersistenceError(err error) *StandardError {
	return newError(ErrCodeDraftPersistenceFailed, "Draft could not be saved, storage may be full", errDetails(err), true, err)
}

// NewDraftCorruptError reports a stored draft that cannot be decoded.
func NewDraftCorruptError(err error) *StandardError {
	return newError(ErrCodeDraftCorrupt, "Stored draft is unreadable", errDetails(err), false, err)
}

// NewCatalogLoadFailedError creates a retryable catalog fetch error.
func NewCatalogLoadFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCatalogLoadFailed, "Question catalog could not be loaded", fmt.Sprintf("source: %s, error: %s", source, errDetails(err)), true, err)
}

// NewCatalogEmptyError reports a fetch that produced no questions.
func NewCatalogEmptyError(source string) *StandardError {
	return newError(ErrCodeCatalogEmpty, "Question catalog is empty", fmt.Sprintf("source: %s", source), true, nil)
}

// NewCatalogNotReadyError blocks submission while the catalog is not loaded.
func NewCatalogNotReadyError(state string) *StandardError {
	return newError(ErrCodeCatalogNotReady, "Question catalog is not ready", fmt.Sprintf("state: %s", state), true, nil)
}

func NewReviewDecisionInvalidError(details string) *StandardError {
	return newError(ErrCodeReviewDecisionInvalid, "Review decision is invalid", details, false, nil)
}

func NewSessionInvalidError(details string) *StandardError {
	return newError(ErrCodeSessionInvalid, "Session is invalid or expired", details, false, nil)
}

func NewOTPInvalidError(details string) *StandardError {
	return newError(ErrCodeOTPInvalid, "Verification code is invalid or expired", details, false, nil)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Insufficient permissions", details, false, nil)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", errDetails(err), true, err)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, errDetails(err)), true, err)
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeQueryTimeout, "Database query timeout", fmt.Sprintf("queryType: %s", queryType), true, nil)
}

// NewInvalidQueryTypeError creates a non-retryable invalid query type error.
func NewInvalidQueryTypeError(queryType string) *StandardError {
	return newError(ErrCodeInvalidQueryType, "Unsupported query type", fmt.Sprintf("queryType: %s", queryType), false, nil)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", errDetails(err), true, err)
}

func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed",
		fmt.Sprintf("queryType: %s, error: %s", queryType, errDetails(err)), true, err)
}

func NewSearchTimeoutError(queryType string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Search query timeout", fmt.Sprintf("queryType: %s", queryType), true, nil)
}

func NewIndexNotFoundError(indexName string) *StandardError {
	return newError(ErrCodeIndexNotFound, "Search index not found", fmt.Sprintf("index: %s", indexName), false, nil)
}

func NewInvalidFilterFormatError(details string) *StandardError {
	return newError(ErrCodeInvalidFilterFormat, "Invalid search filter format", details, false, nil)
}

func NewApplicationValidationFailedError(details string) *StandardError {
	return newError(ErrCodeApplicationValidationFailed, "Application data validation failed", details, false, nil)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert failed", errDetails(err), true, err)
}

func NewDuplicateApplicationError(applicationID string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "Application already exists for this applicant and year",
		fmt.Sprintf("applicationId: %s", applicationID), false, nil)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification could not be sent",
		fmt.Sprintf("type: %s, error: %s", notificationType, errDetails(err)), true, err)
}

func NewStorageFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStorageFailed, "Object storage operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)), true, err)
}

func NewEventPublishFailedError(routingKey string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Event could not be published",
		fmt.Sprintf("routingKey: %s, error: %s", routingKey, errDetails(err)), true, err)
}

func NewWorkflowFailedError(processID string, err error) *StandardError {
	return newError(ErrCodeWorkflowFailed, "Workflow could not be started",
		fmt.Sprintf("process: %s, error: %s", processID, errDetails(err)), true, err)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), errDetails(err), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), errDetails(err), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", errDetails(err), false, err)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes caught by boundary events
// in the certification-application process. Codes absent from the map are thrown as-is.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeApplicationValidationFailed:   "APPLICATION_VALIDATION_FAILED",
	ErrCodeAssessmentValidationFailed:    "APPLICATION_VALIDATION_FAILED",
	ErrCodeSubmissionIncomplete:          "APPLICATION_VALIDATION_FAILED",
	ErrCodeDuplicateApplication:          "DUPLICATE_APPLICATION",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseInsertFailed:          "DATABASE_INSERT_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeInvalidQueryType:              "INVALID_QUERY_TYPE",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:                 "SEARCH_TIMEOUT",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
	ErrCodeInvalidFilterFormat:           "INVALID_FILTER_FORMAT",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeStorageFailed,
		ErrCodeEventPublishFailed,
		ErrCodeCatalogLoadFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout,
		ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the taxonomy class of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeAssessmentValidationFailed,
		ErrCodeScoreOutOfRange,
		ErrCodeAttachmentRejected,
		ErrCodeSubmissionIncomplete,
		ErrCodeApplicationValidationFailed,
		ErrCodeInvalidFilterFormat,
		ErrCodeInvalidQueryType,
		ErrCodeReviewDecisionInvalid:
		return CategoryValidation

	case ErrCodeDraftPersistenceFailed,
		ErrCodeDraftCorrupt,
		ErrCodeDatabaseInsertFailed,
		ErrCodeStorageFailed:
		return CategoryPersistence

	case ErrCodeCatalogLoadFailed,
		ErrCodeCatalogEmpty,
		ErrCodeCatalogNotReady,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeQueryTimeout,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeSearchTimeout,
		ErrCodeIndexNotFound,
		ErrCodeNotificationSendFailed,
		ErrCodeEventPublishFailed,
		ErrCodeWorkflowFailed,
		ErrCodeExternalService,
		ErrCodeTimeout:
		return CategoryRemote

	case ErrCodeSessionInvalid,
		ErrCodeOTPInvalid,
		ErrCodeForbidden:
		return CategoryAuth

	case ErrCodeBusinessRule,
		ErrCodeDuplicateApplication:
		return CategoryBusiness

	case ErrCodeResourceNotFound:
		return CategoryNotFound

	default:
		return CategoryOther
	}
}

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}
