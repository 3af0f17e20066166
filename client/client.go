package client

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/ghetzel/go-stockutil/httputil"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/util"
)

// A client for the refcheck HTTP API.  Validation failures reported by the server are returned as
// *dal.ValidationError.
type Client struct {
	Address string
	client  *httputil.Client
}

func NewClient(address string) (*Client, error) {
	if client, err := httputil.NewClient(strings.TrimSuffix(address, `/`)); err == nil {
		client.SetHeader(`Content-Type`, `application/json`)
		client.SetErrorDecoder(decodeError)

		return &Client{
			Address: address,
			client:  client,
		}, nil
	} else {
		return nil, err
	}
}

func (self *Client) Status() (util.Status, error) {
	status := util.Status{}

	if res, err := self.client.Get(`/api/status`, nil, nil); err == nil {
		err = self.client.Decode(res.Body, &status)
		return status, err
	} else {
		return status, err
	}
}

// Validate the given record against the named collection without storing it.
func (self *Client) Validate(collection string, record map[string]interface{}) (map[string]interface{}, error) {
	return self.post(fmt.Sprintf("/api/collections/%s/validate", url.PathEscape(collection)), record)
}

// Validate and store the given record in the named collection.
func (self *Client) Create(collection string, record map[string]interface{}) (map[string]interface{}, error) {
	return self.post(fmt.Sprintf("/api/collections/%s/records", url.PathEscape(collection)), record)
}

func (self *Client) Get(collection string, id interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}

	if res, err := self.client.Get(
		fmt.Sprintf(
			"/api/collections/%s/records/%s",
			url.PathEscape(collection),
			url.PathEscape(fmt.Sprintf("%v", id)),
		),
		nil,
		nil,
	); err == nil {
		err = self.client.Decode(res.Body, &out)
		return out, err
	} else {
		return nil, err
	}
}

func (self *Client) post(path string, body map[string]interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}

	if res, err := self.client.Post(path, body, nil, nil); err == nil {
		err = self.client.Decode(res.Body, &out)
		return out, err
	} else {
		return nil, err
	}
}

func decodeError(res *http.Response) error {
	if res.Body == nil {
		return fmt.Errorf("%s", res.Status)
	}

	data, err := ioutil.ReadAll(res.Body)

	if err != nil {
		return err
	}

	if res.StatusCode == http.StatusUnprocessableEntity {
		verr := &dal.ValidationError{}

		if err := json.Unmarshal(data, verr); err == nil {
			return verr
		} else {
			return fmt.Errorf("invalid validation response: %v", err)
		}
	}

	var failure map[string]interface{}

	if err := json.Unmarshal(data, &failure); err == nil {
		if msg, ok := failure[`error`]; ok {
			return fmt.Errorf("%s: %v", res.Status, msg)
		}
	}

	return fmt.Errorf("%s", res.Status)
}
