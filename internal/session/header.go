package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// HeaderName is the request header carrying the shopper session.
const HeaderName = "Cart-Session"

// ParseHeader extracts a Session from a Cart-Session header.
// Format is an RFC 8941 Dictionary:
//
//	Cart-Session: id="shopper-7", token="eyJhb..."
//
// Both keys are optional: a missing token means a guest session, a missing
// id leaves ID empty for the caller to fill. An empty header is an error;
// callers that allow headerless requests should skip parsing instead.
func ParseHeader(header string) (Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Session{}, errors.New("empty Cart-Session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Session{}, fmt.Errorf("invalid Cart-Session header: %w", err)
	}

	var s Session
	if s.ID, err = stringMember(dict, "id"); err != nil {
		return Session{}, err
	}
	if s.Token, err = stringMember(dict, "token"); err != nil {
		return Session{}, err
	}
	return s, nil
}

// stringMember reads an optional string item from the dictionary.
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}
	value, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return value, nil
}
