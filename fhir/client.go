// Copyright 2026 The Samply Community
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fhir contains a small FHIR client used to publish cohort
// definitions as Library resources.
package fhir

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/cockroachdb/errors"
	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
)

// Auth adds authentication information to a request.
type Auth interface {
	apply(req *http.Request)
}

type BasicAuth struct {
	User     string
	Password string
}

func (a BasicAuth) apply(req *http.Request) {
	req.SetBasicAuth(a.User, a.Password)
}

type TokenAuth struct {
	Token string
}

func (a TokenAuth) apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.Token)
}

// A Client is a FHIR client which combines an HTTP client with the base URL of
// a FHIR server.
type Client struct {
	httpClient http.Client
	baseURL    url.URL
	auth       Auth
}

// NewClient creates a new Client with the given base URL. auth may be nil.
func NewClient(fhirServerBaseUrl url.URL, auth Auth) *Client {
	return createClient(fhirServerBaseUrl, auth, &tls.Config{})
}

// NewClientInsecure creates a new Client as NewClient does but disables TLS
// certificate verification.
func NewClientInsecure(fhirServerBaseUrl url.URL, auth Auth) *Client {
	return createClient(fhirServerBaseUrl, auth, &tls.Config{InsecureSkipVerify: true})
}

// NewClientCa creates a new Client which trusts the certificate authorities
// found in the PEM file caCert in addition to the system pool.
func NewClientCa(fhirServerBaseUrl url.URL, auth Auth, caCert string) (*Client, error) {
	pem, err := os.ReadFile(caCert)
	if err != nil {
		return nil, errors.Wrap(err, "could not read the certificate authority file")
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.Newf("no certificates found in %s", caCert)
	}
	return createClient(fhirServerBaseUrl, auth, &tls.Config{RootCAs: pool}), nil
}

func createClient(fhirServerBaseUrl url.URL, auth Auth, tlsConfig *tls.Config) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = tlsConfig

	return &Client{
		httpClient: http.Client{Transport: t},
		baseURL:    fhirServerBaseUrl,
		auth:       auth,
	}
}

const fhirJson = "application/fhir+json"

// NewTransactionRequest creates a new transaction interaction request. Uses
// the base URL from the FHIR client and sets JSON Accept and Content-Type
// headers.
func (c *Client) NewTransactionRequest(body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, c.baseURL.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "error while creating a transaction request")
	}
	req.Header.Add("Accept", fhirJson)
	req.Header.Add("Content-Type", fhirJson)
	return req, nil
}

// Do calls Do on the HTTP client of the FHIR client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.auth != nil {
		c.auth.apply(req)
	}
	return c.httpClient.Do(req)
}

// ReadBundle reads and unmarshals a bundle.
func ReadBundle(r io.Reader) (fm.Bundle, error) {
	var bundle fm.Bundle
	body, err := io.ReadAll(r)
	if err != nil {
		return bundle, err
	}
	return fm.UnmarshalBundle(body)
}

// ReadOperationOutcome reads and unmarshals an operation outcome.
func ReadOperationOutcome(r io.Reader) (*fm.OperationOutcome, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	outcome := fm.OperationOutcome{}
	if err := json.Unmarshal(body, &outcome); err != nil {
		return nil, errors.Wrap(err, "response is no OperationOutcome")
	}
	return &outcome, nil
}
