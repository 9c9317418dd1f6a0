package shipsgo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/seatrail/backend-cargo/internal/obs"
	"github.com/seatrail/backend-cargo/internal/resilience"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

// ProviderName labels this vendor in logs and metrics.
const ProviderName = "shipsgo"

const (
	versionSea = "v1.2"
	versionAir = "v2"

	seaRegisterEndpoint = "/ContainerService/PostContainerInfo"
	seaFetchEndpoint    = "/ContainerService/GetContainerInfo/"
	airRegisterEndpoint = "/air/shipments"
	airFetchEndpoint    = "/air/shipments"
)

// ErrVendor wraps any vendor-reported failure.
var ErrVendor = errors.New("shipsgo: vendor error")

var requestIDPattern = regexp.MustCompile(`\d{5,}`)

// envelope is the request shape the proxy expects; it relays the call to the
// vendor with credentials attached server-side.
type envelope struct {
	Version     string            `json:"version"`
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Data        map[string]any    `json:"data,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}

type proxyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client talks to the vendor through the credential-holding proxy. It
// implements tracking.Provider.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// New constructs a vendor client.
func New(baseURL string, httpClient resilience.HTTPClient, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTP:    httpClient,
		Logger:  logger,
	}
}

// Name implements tracking.Provider.
func (c *Client) Name() string { return ProviderName }

// Register submits an identifier for tracking. A vendor "already exists"
// rejection is treated as success; the request id is scraped from the error
// text when present, falling back to the identifier itself.
func (c *Client) Register(ctx context.Context, identifier string, t tracking.Type) (tracking.RegisterAck, error) {
	env := registerEnvelope(identifier, t)
	raw, vendorErr, err := c.call(ctx, "register", env)
	if err != nil {
		return tracking.RegisterAck{}, err
	}
	if vendorErr != "" {
		if isAlreadyExists(vendorErr) {
			requestID := scrapeRequestID(vendorErr)
			if requestID == "" {
				requestID = identifier
			}
			c.Logger.Debug().
				Str("identifier", identifier).
				Str("request_id", requestID).
				Msg("identifier already registered with vendor")
			return tracking.RegisterAck{RequestID: requestID, AlreadyExists: true}, nil
		}
		return tracking.RegisterAck{}, fmt.Errorf("%w: %s", ErrVendor, vendorErr)
	}
	return tracking.RegisterAck{RequestID: extractRequestID(raw, identifier)}, nil
}

// Fetch retrieves the current vendor payload for a registration. Array
// responses are unwrapped to their first element.
func (c *Client) Fetch(ctx context.Context, requestID string, t tracking.Type) (map[string]any, error) {
	env := fetchEnvelope(requestID, t)
	raw, vendorErr, err := c.call(ctx, "fetch", env)
	if err != nil {
		return nil, err
	}
	if vendorErr != "" {
		return nil, fmt.Errorf("%w: %s", ErrVendor, vendorErr)
	}
	return unwrapPayload(raw)
}

func (c *Client) call(ctx context.Context, operation string, env envelope) (json.RawMessage, string, error) {
	tracer := otel.Tracer("vendor.shipsgo")
	ctx, span := tracer.Start(ctx, "shipsgo."+operation)
	span.SetAttributes(
		attribute.String("vendor.endpoint", env.Endpoint),
		attribute.String("vendor.version", env.Version),
	)
	defer span.End()

	result := "error"
	defer func() {
		if obs.VendorCallsTotal != nil {
			obs.VendorCallsTotal.WithLabelValues(ProviderName, operation, result).Inc()
		}
	}()

	body, err := json.Marshal(env)
	if err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/shipsgo", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return nil, "", err
	}
	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%w: proxy status %d", ErrVendor, resp.StatusCode)
		span.RecordError(err)
		return nil, "", err
	}

	var parsed proxyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		span.RecordError(err)
		return nil, "", fmt.Errorf("%w: malformed proxy response: %v", ErrVendor, err)
	}
	if !parsed.Success {
		result = "vendor_error"
		return nil, firstNonEmpty(parsed.Error, "request rejected"), nil
	}
	result = "ok"
	return parsed.Data, "", nil
}

func registerEnvelope(identifier string, t tracking.Type) envelope {
	if t.Air() {
		return envelope{
			Version:  versionAir,
			Endpoint: airRegisterEndpoint,
			Method:   http.MethodPost,
			Data:     map[string]any{"awbNumber": identifier},
		}
	}
	data := map[string]any{"shippingLine": "OTHERS"}
	if t == tracking.TypeBL {
		data["blContainersRef"] = identifier
	} else {
		data["containerNumber"] = identifier
	}
	return envelope{
		Version:     versionSea,
		Endpoint:    seaRegisterEndpoint,
		Method:      http.MethodPost,
		Data:        data,
		ContentType: "application/x-www-form-urlencoded",
	}
}

func fetchEnvelope(requestID string, t tracking.Type) envelope {
	if t.Air() {
		return envelope{
			Version:  versionAir,
			Endpoint: airFetchEndpoint + "/" + requestID,
			Method:   http.MethodGet,
		}
	}
	return envelope{
		Version:  versionSea,
		Endpoint: seaFetchEndpoint,
		Method:   http.MethodGet,
		Params:   map[string]string{"requestId": requestID, "mapPoint": "true"},
	}
}

// unwrapPayload accepts both an object and an array-of-objects body.
func unwrapPayload(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrVendor)
	}
	if trimmed[0] == '[' {
		var list []map[string]any
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: malformed payload: %v", ErrVendor, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty payload", ErrVendor)
		}
		return list[0], nil
	}
	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrVendor, err)
	}
	return obj, nil
}

func extractRequestID(raw json.RawMessage, fallback string) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return fallback
	}
	// v1.2 returns the numeric request id as a bare value or string
	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil && strings.TrimSpace(asString) != "" {
		return strings.TrimSpace(asString)
	}
	var asNumber json.Number
	if err := json.Unmarshal(trimmed, &asNumber); err == nil && asNumber.String() != "" {
		return asNumber.String()
	}
	var asObject map[string]any
	if err := json.Unmarshal(trimmed, &asObject); err == nil {
		for _, key := range []string{"requestId", "RequestId", "id", "Id"} {
			if v, ok := asObject[key]; ok {
				if s := stringify(v); s != "" {
					return s
				}
			}
		}
	}
	return fallback
}

func isAlreadyExists(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "already exists") || strings.Contains(lower, "already registered")
}

func scrapeRequestID(message string) string {
	return requestIDPattern.FindString(message)
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.0f", val), ".")
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
