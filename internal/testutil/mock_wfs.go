// Package testutil provides testing utilities for the downloader.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockWFS is a configurable mock feature service for testing. Handlers
// can be keyed by URL path (catalogue API endpoints) or by the WFS
// "request" query parameter (GetFeature, GetCapabilities, ...).
type MockWFS struct {
	server     *httptest.Server
	mu         sync.RWMutex
	pathHdlrs  map[string]func(w http.ResponseWriter, r *http.Request)
	opHandlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestURL    string
	LastRequestHeader http.Header
}

// NewMockWFS creates a new mock server.
func NewMockWFS() *MockWFS {
	mock := &MockWFS{
		pathHdlrs:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		opHandlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestURL = r.URL.String()
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.pathHdlrs[r.URL.Path]
		if !exists {
			op := strings.ToLower(r.URL.Query().Get("request"))
			handler, exists = mock.opHandlers[op]
		}
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.Error(w, "no handler configured", http.StatusBadRequest)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockWFS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockWFS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockWFS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestURL = ""
	m.LastRequestHeader = nil
}

// SetPathHandler sets a custom handler for a specific URL path.
func (m *MockWFS) SetPathHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pathHdlrs[path] = handler
}

// SetOperationHandler sets a custom handler for a WFS operation
// ("getfeature", "getcapabilities", "describefeaturetype").
func (m *MockWFS) SetOperationHandler(op string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opHandlers[strings.ToLower(op)] = handler
}

// SetPathResponse configures a simple response for a path.
func (m *MockWFS) SetPathResponse(path string, resp MockResponse) {
	m.SetPathHandler(path, respond(resp))
}

// SetOperationResponse configures a simple response for a WFS operation.
func (m *MockWFS) SetOperationResponse(op string, resp MockResponse) {
	m.SetOperationHandler(op, respond(resp))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockWFS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

func respond(resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// NewHitsResponse creates a resultType=hits response reporting count
// matched features.
func NewHitsResponse(count int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body: fmt.Sprintf(
			`<wfs:FeatureCollection xmlns:wfs="http://www.opengis.net/wfs/2.0" numberMatched="%d" numberReturned="0"/>`,
			count),
		Headers: map[string]string{"Content-Type": "application/xml"},
	}
}

// FeatureCollectionBody builds a GeoJSON FeatureCollection of n point
// features with sequential ids starting at start.
func FeatureCollectionBody(start, n int) string {
	var b strings.Builder
	b.WriteString(`{"type":"FeatureCollection","features":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		id := start + i
		fmt.Fprintf(&b,
			`{"type":"Feature","id":"TEST.%d","geometry":{"type":"Point","coordinates":[%d,%d]},"properties":{"OBJECTID":%d}}`,
			id, id, id, id)
	}
	b.WriteString("]}")
	return b.String()
}

// NewPagedFeatureHandler creates a GetFeature handler that serves total
// synthetic features, honoring the startIndex and count parameters.
func NewPagedFeatureHandler(total int) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.Atoi(q.Get("startIndex"))
		count, _ := strconv.Atoi(q.Get("count"))
		if count <= 0 || start+count > total {
			count = total - start
		}
		if count < 0 {
			count = 0
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(FeatureCollectionBody(start, count)))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal server error",
		Headers:    map[string]string{"Content-Type": "text/plain"},
	}
}

// NewBadFilterResponse creates a 400 response like the one the server
// returns for an invalid CQL filter.
func NewBadFilterResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body: `<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1">` +
			`<ows:Exception exceptionCode="InvalidParameterValue" locator="CQL_FILTER"/></ows:ExceptionReport>`,
		Headers: map[string]string{"Content-Type": "application/xml"},
	}
}

// CapabilitiesBody builds a GetCapabilities document listing the given
// typenames with the given CountDefault paging constraint.
func CapabilitiesBody(countDefault int, typenames ...string) string {
	var b strings.Builder
	b.WriteString(`<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0" xmlns:ows="http://www.opengis.net/ows/1.1">`)
	b.WriteString(`<ows:OperationsMetadata>`)
	fmt.Fprintf(&b,
		`<ows:Constraint name="CountDefault"><ows:NoValues/><ows:DefaultValue>%d</ows:DefaultValue></ows:Constraint>`,
		countDefault)
	b.WriteString(`</ows:OperationsMetadata><FeatureTypeList>`)
	for _, name := range typenames {
		fmt.Fprintf(&b, `<FeatureType><Name>pub:%s</Name></FeatureType>`, name)
	}
	b.WriteString(`</FeatureTypeList></wfs:WFS_Capabilities>`)
	return b.String()
}

// DescribeFeatureTypeBody builds a DescribeFeatureType schema document.
// Fields are name:type pairs; the geometry column uses a gml: type.
func DescribeFeatureTypeBody(fields [][2]string) string {
	var b strings.Builder
	b.WriteString(`<xsd:schema xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:gml="http://www.opengis.net/gml/3.2">`)
	b.WriteString(`<xsd:complexType><xsd:complexContent><xsd:extension><xsd:sequence>`)
	for _, f := range fields {
		fmt.Fprintf(&b, `<xsd:element name="%s" type="%s"/>`, f[0], f[1])
	}
	b.WriteString(`</xsd:sequence></xsd:extension></xsd:complexContent></xsd:complexType></xsd:schema>`)
	return b.String()
}
