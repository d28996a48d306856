// Package app owns the mutable application state: the current page and the
// in-memory copies of categories, transactions and reminders. Every other
// package takes these as parameters.
package app

import (
	"fmt"
	"slices"
	"time"

	"budget/internal/core"
)

type Page string

const (
	PageDashboard    Page = "dashboard"
	PageTransactions Page = "transactions"
	PageBills        Page = "bills"
	PageCategories   Page = "categories"
	PageSettings     Page = "settings"
)

func (p Page) Valid() bool {
	switch p {
	case PageDashboard, PageTransactions, PageBills, PageCategories, PageSettings:
		return true
	}
	return false
}

// Source records where a collection was loaded from.
type Source string

const (
	SourceNone    Source = ""
	SourceRemote  Source = "remote"
	SourceLocal   Source = "local"
	SourceDefault Source = "default"
	SourceEmpty   Source = "empty"
)

// Sources tracks the origin of each collection after a refresh.
type Sources struct {
	Categories   Source `json:"categories"`
	Transactions Source `json:"transactions"`
	Reminders    Source `json:"reminders"`
}

// AllRemote reports whether every collection came from the remote API.
func (s Sources) AllRemote() bool {
	return s.Categories == SourceRemote && s.Transactions == SourceRemote && s.Reminders == SourceRemote
}

type State struct {
	Page         Page               `json:"page"`
	Categories   []core.Category    `json:"categories"`
	Transactions []core.Transaction `json:"transactions"`
	Reminders    []core.Reminder    `json:"reminders"`
	Sources      Sources            `json:"sources"`
	RefreshedAt  time.Time          `json:"refreshed_at"`
}

func NewState() State {
	return State{
		Page:         PageDashboard,
		Categories:   []core.Category{},
		Transactions: []core.Transaction{},
		Reminders:    []core.Reminder{},
	}
}

// clone copies the slices so a snapshot never aliases controller state.
func (s State) clone() State {
	s.Categories = slices.Clone(s.Categories)
	s.Transactions = slices.Clone(s.Transactions)
	s.Reminders = slices.Clone(s.Reminders)
	return s
}

func parsePage(s string) (Page, error) {
	p := Page(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown page %q", core.ErrParse, s)
	}
	return p, nil
}
