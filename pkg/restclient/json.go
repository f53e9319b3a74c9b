package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"scriptbrowser/pkg/backend"
	"scriptbrowser/pkg/fixture"

	"github.com/titanous/json5"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

// JSONClient encodes request values as JSON bodies and decodes JSON
// responses into a destination. Responses are decoded leniently, comments
// and trailing commas are accepted.
type JSONClient struct {
	*Client
}

func NewJSON(base string, b backend.Backend, opts ...Option) JSONClient {
	return JSONClient{Client: New(base, b, opts...)}
}

func encode(value any) (fixture.Data, error) {
	if value == nil {
		return fixture.NoData(), nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return fixture.Data{}, fmt.Errorf("encode body: %w", err)
	}
	return fixture.Opaque(string(body)), nil
}

// decode leaves dest untouched when the body is empty or dest is nil.
func decode(body string, dest any) error {
	if dest == nil || strings.TrimSpace(body) == "" {
		return nil
	}
	err := json5.Unmarshal([]byte(body), dest)
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (c JSONClient) exchange(ctx context.Context, method, obj, uid string, value, dest any) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	var headers map[string]string
	if !data.IsEmpty() {
		headers = jsonHeaders
	}
	res, err := c.do(ctx, method, obj, uid, data, headers)
	if err != nil {
		return err
	}
	return decode(res.Body, dest)
}

func (c JSONClient) Create(ctx context.Context, obj string, value, dest any) error {
	return c.exchange(ctx, http.MethodPost, obj, "", value, dest)
}

func (c JSONClient) Read(ctx context.Context, obj, uid string, dest any) error {
	return c.exchange(ctx, http.MethodGet, obj, uid, nil, dest)
}

func (c JSONClient) Update(ctx context.Context, obj, uid string, value, dest any) error {
	return c.exchange(ctx, http.MethodPut, obj, uid, value, dest)
}

func (c JSONClient) Destroy(ctx context.Context, obj, uid string, dest any) error {
	return c.exchange(ctx, http.MethodDelete, obj, uid, nil, dest)
}
