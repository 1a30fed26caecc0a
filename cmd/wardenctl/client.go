package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

// call issues the request and returns the raw body, treating any non-2xx
// status as an error with the server's message attached.
func call(req *resty.Request, method, path string) (string, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return "", fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}

func getJSON(path string) (string, error) {
	return call(apiClient().R(), http.MethodGet, path)
}

func postJSON(path string, body interface{}) (string, error) {
	req := apiClient().R()
	if body != nil {
		req.SetBody(body)
	}
	return call(req, http.MethodPost, path)
}

func deleteJSON(path string) (string, error) {
	return call(apiClient().R(), http.MethodDelete, path)
}
