// Commendo - Content-Based Product Recommendation Engine
// Copyright 2026 D. Venn (dvenn)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dvenn/commendo

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvenn/commendo/internal/models"
)

// Products lists active products with pagination and an optional category
// filter.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit < 1 || limit > 500 || offset < 0 {
		respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT",
			"limit must be 1-500 and offset non-negative", nil)
		return
	}
	category := r.URL.Query().Get("category")

	products, total, err := h.catalog.ListProducts(ctx, category, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Product listing failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"product listing failed", nil)
		return
	}

	respondSuccess(w, http.StatusOK, models.ProductsResponse{
		Products: products,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, started)
}

// ProductByID returns a single product.
func (h *Handler) ProductByID(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	id := chi.URLParam(r, "productID")
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Str("product_id", id).Msg("Product lookup failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"product lookup failed", nil)
		return
	}
	if product == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"product "+id+" not found", nil)
		return
	}

	respondSuccess(w, http.StatusOK, product, started)
}

// Categories lists the active categories with product counts.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx, cancel := handlerContext(r)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Category listing failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"category listing failed", nil)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	}, started)
}
