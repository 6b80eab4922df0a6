package logging

// Standardized field names for structured logging.
// Every component logs the same concept under the same key so that runs can be
// filtered by message or merchant across the whole output.
const (
	FieldRunID       = "run_id"
	FieldMessageID   = "message_id"
	FieldSubject     = "subject"
	FieldAmount      = "amount"
	FieldMerchant    = "merchant"
	FieldPlace       = "place"
	FieldDate        = "date"
	FieldGenreID     = "genre_id"
	FieldCategoryID  = "category_id"
	FieldMappingKey  = "mapping_key"
	FieldStatus      = "status"
	FieldStatusCode  = "status_code"
	FieldError       = "error"
	FieldCount       = "count"
	FieldFile        = "file_path"
	FieldOperation   = "operation"
	FieldRule        = "rule"
	FieldProcessed   = "processed"
	FieldRegistered  = "registered"
	FieldErrors      = "errors"
	FieldSince       = "since"
	FieldMailbox     = "mailbox"
	FieldFromAddress = "from_address"
)
