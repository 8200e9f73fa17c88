// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IDProperty is the custom document property holding the document id.
const IDProperty = "ComnsenseID"

// ErrNoProperties is returned by PropertyIdentity.SetID for documents
// that cannot carry custom properties.
var ErrNoProperties = errors.New("document does not support custom properties")

// Identity maps documents to their stable ids.
type Identity interface {
	// ID returns the id stored on doc, if any.
	ID(doc Document) (string, bool)

	// SetID stores id on doc.
	SetID(doc Document, id string) error
}

// Properties is implemented by documents that carry custom properties.
type Properties interface {
	CustomProperty(name string) (string, bool)
	SetCustomProperty(name, value string) error
}

// PropertyIdentity keeps the id in the IDProperty custom property.
type PropertyIdentity struct{}

func (PropertyIdentity) ID(doc Document) (string, bool) {
	properties, ok := doc.(Properties)
	if !ok {
		return "", false
	}
	id, ok := properties.CustomProperty(IDProperty)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (PropertyIdentity) SetID(doc Document, id string) error {
	properties, ok := doc.(Properties)
	if !ok {
		return ErrNoProperties
	}
	return properties.SetCustomProperty(IDProperty, id)
}

// NewID mints a document id.
func NewID() string {
	return uuid.NewString()
}

// EnsureID returns the id of doc, minting and storing one when the
// document has none yet.
func EnsureID(identity Identity, doc Document) (id string, minted bool, err error) {
	if id, ok := identity.ID(doc); ok {
		return id, false, nil
	}
	id = NewID()
	if err := identity.SetID(doc, id); err != nil {
		return "", false, fmt.Errorf("storing document id: %w", err)
	}
	return id, true, nil
}

// Find returns the open document whose id is id.
func Find(host Host, identity Identity, id string) (Document, bool) {
	for _, doc := range host.OpenDocuments() {
		if docID, ok := identity.ID(doc); ok && docID == id {
			return doc, true
		}
	}
	return nil, false
}
