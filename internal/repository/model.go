package repository

import (
	"encoding/json"
	"strings"
)

const (
	// UntaggedCategory groups resource docs that carry no tag.
	UntaggedCategory = "Untagged"
	// UngroupedCategory groups message docs without an adapter group.
	UngroupedCategory = "Ungrouped"
)

// ResourceDoc describes one API operation of a given version.
type ResourceDoc struct {
	OperationID         string          `json:"operation_id" validate:"required"`
	ImplementedBy       ImplementedBy   `json:"implemented_by"`
	RequestVerb         string          `json:"request_verb"`
	RequestURL          string          `json:"request_url"`
	SpecifiedURL        string          `json:"specified_url,omitempty"`
	Summary             string          `json:"summary"`
	Description         string          `json:"description"`
	DescriptionMarkdown string          `json:"description_markdown,omitempty"`
	ExampleRequestBody  json.RawMessage `json:"example_request_body,omitempty"`
	SuccessResponseBody json.RawMessage `json:"success_response_body,omitempty"`
	ErrorResponseBodies []string        `json:"error_response_bodies,omitempty"`
	Tags                []string        `json:"tags"`
	Roles               []Role          `json:"roles,omitempty"`
	IsFeatured          bool            `json:"is_featured"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
	ConnectorMethods    []string        `json:"connector_methods,omitempty"`
}

type ImplementedBy struct {
	Version  string `json:"version"`
	Function string `json:"function"`
}

type Role struct {
	Role           string `json:"role"`
	RequiresBankID bool   `json:"requires_bank_id"`
}

// Category is the first tag of the operation.
func (d ResourceDoc) Category() string {
	if len(d.Tags) > 0 {
		if tag := strings.TrimSpace(d.Tags[0]); tag != "" {
			return tag
		}
	}
	return UntaggedCategory
}

// ResourceDocsPayload is the upstream answer for one API version.
type ResourceDocsPayload struct {
	ResourceDocs []ResourceDoc `json:"resource_docs" validate:"dive"`
}

// ResourceDocsSnapshot is the cached payload of the resource docs partition:
// API version -> resource docs of that version.
type ResourceDocsSnapshot map[string]ResourceDocsPayload

// MessageDoc describes one connector message.
type MessageDoc struct {
	Process                string                `json:"process" validate:"required"`
	MessageFormat          string                `json:"message_format"`
	Description            string                `json:"description"`
	OutboundTopic          string                `json:"outbound_topic,omitempty"`
	InboundTopic           string                `json:"inbound_topic,omitempty"`
	ExampleOutboundMessage json.RawMessage       `json:"example_outbound_message,omitempty"`
	ExampleInboundMessage  json.RawMessage       `json:"example_inbound_message,omitempty"`
	RequiredFieldInfo      json.RawMessage       `json:"requiredFieldInfo,omitempty"`
	AdapterImplementation  AdapterImplementation `json:"adapter_implementation"`
}

type AdapterImplementation struct {
	Group          string `json:"group"`
	SuggestedOrder int    `json:"suggested_order"`
}

// Category is the adapter implementation group.
func (d MessageDoc) Category() string {
	if group := strings.TrimSpace(d.AdapterImplementation.Group); group != "" {
		return group
	}
	return UngroupedCategory
}

// MessageDocsPayload is the upstream answer for one connector.
type MessageDocsPayload struct {
	MessageDocs []MessageDoc `json:"message_docs" validate:"dive"`
}

// MessageDocsSnapshot is the cached payload of the message docs partition:
// connector -> message docs of that connector.
type MessageDocsSnapshot map[string]MessageDocsPayload

type Glossary struct {
	Items []GlossaryItem `json:"glossary_items"`
}

type GlossaryItem struct {
	Title       string              `json:"title"`
	Description GlossaryDescription `json:"description"`
}

type GlossaryDescription struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

type APICollection struct {
	APICollectionID   string `json:"api_collection_id"`
	UserID            string `json:"user_id"`
	APICollectionName string `json:"api_collection_name"`
	IsSharable        bool   `json:"is_sharable"`
	Description       string `json:"description"`
}

type APICollections struct {
	APICollections []APICollection `json:"api_collections"`
}

type APICollectionEndpoint struct {
	APICollectionEndpointID string `json:"api_collection_endpoint_id"`
	APICollectionID         string `json:"api_collection_id"`
	OperationID             string `json:"operation_id"`
}

type APICollectionEndpoints struct {
	Endpoints []APICollectionEndpoint `json:"api_collection_endpoints"`
}

// OperationIDs lists the operation ids in collection order.
func (e APICollectionEndpoints) OperationIDs() []string {
	ids := make([]string, 0, len(e.Endpoints))
	for _, ep := range e.Endpoints {
		ids = append(ids, ep.OperationID)
	}
	return ids
}

// ApplyDefaults sets fallback values after decode.
func (s ResourceDocsSnapshot) ApplyDefaults() {
	for version, payload := range s {
		if payload.ResourceDocs == nil {
			payload.ResourceDocs = []ResourceDoc{}
		}
		for i := range payload.ResourceDocs {
			if payload.ResourceDocs[i].Tags == nil {
				payload.ResourceDocs[i].Tags = []string{}
			}
		}
		s[version] = payload
	}
}

// ApplyDefaults sets fallback values after decode.
func (s MessageDocsSnapshot) ApplyDefaults() {
	for connector, payload := range s {
		if payload.MessageDocs == nil {
			payload.MessageDocs = []MessageDoc{}
		}
		s[connector] = payload
	}
}
