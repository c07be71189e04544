package httpclient

// ClientInterface defines the operations exposed by the HTTP client.
// It exists so callers can substitute a test double.
type ClientInterface interface {
	DoRequest(opts RequestOptions) ([]byte, string, error)
	CreateResource(resourceType string, data []byte, queryParams map[string]string) ([]byte, string, error)
	GetResource(resourceType string, resourceName string, queryParams map[string]string) ([]byte, error)
	ListResources(resourceType string, queryParams map[string]string) ([]byte, error)
}

var _ ClientInterface = (*HTTPClient)(nil)
