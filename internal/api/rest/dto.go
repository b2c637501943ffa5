package rest

// PanelStatus is the global panel flag.
type PanelStatus struct {
	Armed *bool `json:"armed"`
}

// BuildingOut is one building with its display schedule.
type BuildingOut struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DeviceOut is one proevent with its exception flags.
type DeviceOut struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	State             string  `json:"state"`
	BuildingName      *string `json:"building_name"`
	IsIgnoredOnArm    bool    `json:"is_ignored_on_arm"`
	IsIgnoredOnDisarm bool    `json:"is_ignored_on_disarm"`
}

// DeviceActionRequest asks to arm or disarm a whole building.
type DeviceActionRequest struct {
	BuildingID int64  `json:"building_id"`
	Action     string `json:"action"`
}

// ActionDetail reports the outcome for one building.
type ActionDetail struct {
	BuildingID int64  `json:"building_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// DeviceActionSummaryResponse summarizes a bulk action.
type DeviceActionSummaryResponse struct {
	SuccessCount int64          `json:"success_count"`
	FailureCount int64          `json:"failure_count"`
	Details      []ActionDetail `json:"details"`
}

// BuildingTime is a stored schedule; times are null when unset.
type BuildingTime struct {
	BuildingID int64   `json:"building_id"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
}

// BuildingTimeRequest sets a building's schedule.
type BuildingTimeRequest struct {
	BuildingID int64  `json:"building_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// BuildingTimeResponse confirms a stored schedule.
type BuildingTimeResponse struct {
	BuildingID int64   `json:"building_id"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Updated    bool    `json:"updated"`
}

// IgnoredItemRequest sets the exception flags of one proevent.
type IgnoredItemRequest struct {
	ItemID         int64 `json:"item_id"`
	BuildingFrk    int64 `json:"building_frk"`
	DevicePrk      int64 `json:"device_prk"`
	IgnoreOnArm    bool  `json:"ignore_on_arm"`
	IgnoreOnDisarm bool  `json:"ignore_on_disarm"`
}

// IgnoredItemBulkRequest sets the exception flags of many proevents.
type IgnoredItemBulkRequest struct {
	Items []IgnoredItemRequest `json:"items"`
}

// IgnoreBulkResponse reports stored rules and re-evaluated buildings.
type IgnoreBulkResponse struct {
	Status      string  `json:"status"`
	Updated     int     `json:"updated"`
	Reevaluated []int64 `json:"reevaluated"`
}

// ReevaluateResponse reports an on-demand reconciliation.
type ReevaluateResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Action   string `json:"action"`
	Affected int64  `json:"affected"`
	Notified int    `json:"notified"`
	Skipped  string `json:"skipped,omitempty"`
}

// HistoryEntryOut is one state history row.
type HistoryEntryOut struct {
	PointID    int64  `json:"point_id"`
	BuildingID int64  `json:"building_id"`
	State      string `json:"state"`
}

// HealthResponse reports store reachability.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
