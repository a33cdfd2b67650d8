// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

// Package models holds the shared API request and response shapes.
package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by every HTTP
// endpoint, for both success and error outcomes.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"items": [...]},
//	  "metadata": {"timestamp": "2026-08-28T12:00:00Z", "query_time_ms": 4}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "NOT_FOUND", "message": "product \"x\" not found"},
//	  "metadata": {"timestamp": "2026-08-28T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields: the server timestamp,
// the handler execution time, and whether the payload was served from the
// recommendation cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the structured error payload.
//
// Error codes used by the API: VALIDATION_ERROR, INVALID_ARGUMENT,
// NOT_FOUND, MODEL_UNAVAILABLE, REBUILD_IN_PROGRESS, REBUILD_FAILED,
// AUTHENTICATION_ERROR, AUTHORIZATION_ERROR, RATE_LIMIT_EXCEEDED,
// INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RecommendationsResponse is the payload for all recommendation endpoints.
type RecommendationsResponse struct {
	Items     interface{} `json:"items"`
	Count     int         `json:"count"`
	Algorithm string      `json:"algorithm,omitempty"`
	Subject   string      `json:"subject,omitempty"`
}

// ProductsResponse is the payload for the product listing endpoint.
type ProductsResponse struct {
	Products interface{} `json:"products"`
	Total    int         `json:"total"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
}

// InteractionRequest is the body of POST /api/v1/interactions.
type InteractionRequest struct {
	ProductID       string `json:"product_id" validate:"required"`
	Kind            string `json:"kind" validate:"required,oneof=view like purchase"`
	DurationSeconds int    `json:"duration_seconds,omitempty" validate:"min=0,max=86400"`
	Quantity        int    `json:"quantity,omitempty" validate:"min=0,max=10000"`
}

// FeedbackRequest is the body of POST /api/v1/recommendations/feedback.
type FeedbackRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

// LoginRequest is the body of POST /api/v1/auth/token.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=128"`
	Password string `json:"password" validate:"required,min=1,max=1024"`
}

// LoginResponse is the payload returned after successful authentication.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}
