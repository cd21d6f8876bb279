package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
)

const restRequestTimeout = 30 * time.Second

// RESTStore talks to a serverless Redis-compatible store over its HTTP
// command protocol: each request is a JSON command vector POSTed with a
// bearer token, each response a {"result": ...} envelope.
type RESTStore struct {
	url    string
	token  string
	client *fasthttp.Client
}

// NewRESTStore creates a store client for the given endpoint URL and
// bearer token.
func NewRESTStore(url, token string) *RESTStore {
	return &RESTStore{
		url:   url,
		token: token,
		client: &fasthttp.Client{
			ReadTimeout:  restRequestTimeout,
			WriteTimeout: restRequestTimeout,
		},
	}
}

type restEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// execute POSTs one command vector and returns the raw result payload.
func (s *RESTStore) execute(ctx context.Context, command []interface{}) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("encoding store command: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.SetBody(body)

	if err := s.client.DoTimeout(req, resp, restRequestTimeout); err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode(), resp.Body())
	}

	var envelope restEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decoding store response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("store command error: %s", envelope.Error)
	}

	return envelope.Result, nil
}

func (s *RESTStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	command := []interface{}{"SET", key, value}
	if ttl > 0 {
		command = append(command, "EX", int64(ttl.Seconds()))
	}
	_, err := s.execute(ctx, command)
	return err
}

func (s *RESTStore) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := s.execute(ctx, []interface{}{"GET", key})
	if err != nil {
		return "", false, err
	}

	var value *string
	if err := json.Unmarshal(result, &value); err != nil {
		return "", false, fmt.Errorf("decoding GET result: %w", err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}

func (s *RESTStore) Scan(ctx context.Context, cursor, match string, count int) ([]string, string, error) {
	result, err := s.execute(ctx, []interface{}{"SCAN", cursor, "MATCH", match, "COUNT", count})
	if err != nil {
		return nil, "", err
	}

	var tuple []json.RawMessage
	if err := json.Unmarshal(result, &tuple); err != nil || len(tuple) != 2 {
		return nil, "", fmt.Errorf("unexpected SCAN result: %s", result)
	}

	next, err := decodeCursor(tuple[0])
	if err != nil {
		return nil, "", err
	}

	var keys []string
	if err := json.Unmarshal(tuple[1], &keys); err != nil {
		return nil, "", fmt.Errorf("decoding SCAN keys: %w", err)
	}

	return keys, next, nil
}

func (s *RESTStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	command := make([]interface{}, 0, len(keys)+1)
	command = append(command, "DEL")
	for _, key := range keys {
		command = append(command, key)
	}
	_, err := s.execute(ctx, command)
	return err
}

// decodeCursor accepts both string and numeric cursor encodings.
func decodeCursor(raw json.RawMessage) (string, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return strconv.FormatInt(asNumber, 10), nil
	}
	return "", fmt.Errorf("unexpected SCAN cursor: %s", raw)
}
