package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldEnable = "enable"
)
