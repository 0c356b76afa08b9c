package metrics

import "fmt"

// Tag creates a formatted DataDog tag string in "key:value" format.
func Tag(key, value string) string {
	return fmt.Sprintf("%s:%s", key, value)
}

// OperationTag creates an operation tag.
func OperationTag(op string) string {
	return Tag("operation", op)
}

// StateTag creates an establishment state tag.
func StateTag(state string) string {
	return Tag("state", state)
}

// EndpointTag creates an endpoint host tag.
func EndpointTag(host string) string {
	return Tag("endpoint", host)
}
