package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
)

func (a *App) handleFunctionList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limitStr := r.URL.Query().Get("limit")
	limit, atoiErr := strconv.Atoi(limitStr)
	if limitStr != "" && atoiErr != nil {
		log.Printf("function list: invalid limit %q, using default", limitStr)
	}
	list, err := a.db.FunctionList(q, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, list)
}

func (a *App) handleFunctionDetail(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "missing query parameter name", http.StatusBadRequest)
		return
	}
	fd, err := a.db.FunctionDetail(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "function not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, fd)
}

func (a *App) handleCFG(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("function")
	if name == "" {
		http.Error(w, "missing query parameter function", http.StatusBadRequest)
		return
	}
	g, err := a.db.CFG(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "function not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, g)
}

func (a *App) handleCoverage(w http.ResponseWriter, r *http.Request) {
	dimension := r.URL.Query().Get("dimension")
	if dimension == "" {
		dimension = "branch"
	}
	if dimension != "branch" && dimension != "statement" {
		http.Error(w, "dimension must be 'branch' or 'statement'", http.StatusBadRequest)
		return
	}
	cs, err := a.db.Coverage(dimension)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, cs)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
