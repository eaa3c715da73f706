package keyvalue

import (
	"github.com/ethpandaops/reportviewer/pkg/nativefilters"
)

// FilterState is a stored filter state entry
type FilterState struct {
	ReportViewerID int    `json:"reportViewerId"`
	TabID          string `json:"tabId,omitempty"`
	// Value is the JSON encoded native filter data mask
	Value string `json:"value"`
}

// PermalinkState is the view captured by a permalink
type PermalinkState struct {
	DataMask   nativefilters.DataMaskState `json:"dataMask,omitempty"`
	ActiveTabs []string                    `json:"activeTabs,omitempty"`
	Anchor     string                      `json:"anchor,omitempty"`
	URLParams  [][2]string                 `json:"urlParams,omitempty"`
}

// PermalinkValue is a stored permalink
type PermalinkValue struct {
	ReportViewerID int            `json:"reportViewerId"`
	State          PermalinkState `json:"state"`
}
