package audit

import "time"

// TimelineFilters narrows the audit trail.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Actor    string
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded change to the ledger or master data.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo holds simple offset paging state.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"has_next"`
	PageSize int  `json:"page_size"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// FiltersViewModel echoes the active filters back to the page.
type FiltersViewModel struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Actor  string `json:"actor,omitempty"`
	Entity string `json:"entity,omitempty"`
	Action string `json:"action,omitempty"`
}

// ViewModel is the audit trail page.
type ViewModel struct {
	Filters FiltersViewModel `json:"filters"`
	Rows    []TimelineRow    `json:"rows"`
	Paging  PagingInfo       `json:"paging"`
}
