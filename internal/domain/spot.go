package domain

// Category identifies which kind of announcement a line carries.
type Category string

const (
	CategoryDX      Category = "DX"
	CategoryRBN     Category = "RBN"
	CategoryWCY     Category = "WCY"
	CategoryWWV     Category = "WWV"
	CategoryWX      Category = "WX"
	CategoryToAll   Category = "ToAll"
	CategoryToLocal Category = "ToLocal"
)

// Dialect identifies the cluster server layout a rule was written for.
type Dialect string

const (
	DialectDXSpider  Dialect = "dxspider"
	DialectARCluster Dialect = "arcluster"
	DialectCCCluster Dialect = "cccluster"
	DialectRBN       Dialect = "rbn"
	// DialectGeneric is the catch-all DX layout used when no stricter
	// dialect rule matched.
	DialectGeneric Dialect = "generic"
)

// Spot is one parsed announcement. The set of implementations is closed:
// DX, RBN, WCY, WWV, WX, ToAll and ToLocal.
type Spot interface {
	Category() Category
	spot()
}

// DX is a "station heard" announcement.
type DX struct {
	Spotter   string              `json:"spotter"`
	Spotted   string              `json:"spotted"`
	Frequency Frequency           `json:"frequency_khz"`
	Time      Optional[TimeOfDay] `json:"time,omitzero"`
	Comment   Optional[string]    `json:"comment,omitzero"`
	Locator   Optional[string]    `json:"locator,omitzero"` // spotter's grid (DXSpider)
	Band      Optional[Band]      `json:"band,omitzero"`
	Mode      Optional[string]    `json:"mode,omitzero"`
}

// RBN is a Reverse Beacon Network skimmer report: a DX spot whose comment
// carries machine-decoded signal metrics. Mode is always present; Locator,
// when present, is the spotted station's grid.
type RBN struct {
	DX
	SNR       Optional[int]    `json:"snr_db,omitzero"`
	Speed     Optional[int]    `json:"speed,omitzero"`
	SpeedUnit Optional[string] `json:"speed_unit,omitzero"` // WPM or BPS
	Info      Optional[string] `json:"info,omitzero"`
}

// WCY is a DK0WCY solar/geomagnetic index report.
type WCY struct {
	Originator string              `json:"originator"`
	Time       Optional[TimeOfDay] `json:"time,omitzero"`
	K          int                 `json:"k"`
	ExpK       Optional[int]       `json:"exp_k,omitzero"`
	A          int                 `json:"a"`
	R          Optional[int]       `json:"r,omitzero"`
	SFI        int                 `json:"sfi"`
	SA         Optional[string]    `json:"sa,omitzero"`  // solar activity
	GMF        Optional[string]    `json:"gmf,omitzero"` // geomagnetic field
	Aurora     Optional[bool]      `json:"aurora,omitzero"`
}

// WWV is a solar weather bulletin.
type WWV struct {
	Originator string              `json:"originator"`
	Time       Optional[TimeOfDay] `json:"time,omitzero"`
	SFI        int                 `json:"sfi"`
	A          int                 `json:"a"`
	K          int                 `json:"k"`
	Conditions Optional[string]    `json:"conditions,omitzero"`
	Forecast   Optional[string]    `json:"forecast,omitzero"`
}

// WX is a free-text weather announcement.
type WX struct {
	Originator string              `json:"originator"`
	Time       Optional[TimeOfDay] `json:"time,omitzero"`
	Message    Optional[string]    `json:"message,omitzero"`
}

// ToAll is an announcement to every user on the cluster network.
type ToAll struct {
	Sender    string              `json:"sender"`
	Recipient Optional[string]    `json:"recipient,omitzero"`
	Time      Optional[TimeOfDay] `json:"time,omitzero"`
	Message   Optional[string]    `json:"message,omitzero"`
}

// ToLocal is an announcement to users of the local node only.
type ToLocal struct {
	Sender    string              `json:"sender"`
	Recipient Optional[string]    `json:"recipient,omitzero"`
	Time      Optional[TimeOfDay] `json:"time,omitzero"`
	Message   Optional[string]    `json:"message,omitzero"`
}

func (DX) Category() Category      { return CategoryDX }
func (RBN) Category() Category     { return CategoryRBN }
func (WCY) Category() Category     { return CategoryWCY }
func (WWV) Category() Category     { return CategoryWWV }
func (WX) Category() Category      { return CategoryWX }
func (ToAll) Category() Category   { return CategoryToAll }
func (ToLocal) Category() Category { return CategoryToLocal }

func (DX) spot()      {}
func (WCY) spot()     {}
func (WWV) spot()     {}
func (WX) spot()      {}
func (ToAll) spot()   {}
func (ToLocal) spot() {}

// Originator returns the callsign that produced the spot, whatever the
// variant calls it.
func Originator(s Spot) string {
	switch v := s.(type) {
	case DX:
		return v.Spotter
	case RBN:
		return v.Spotter
	case WCY:
		return v.Originator
	case WWV:
		return v.Originator
	case WX:
		return v.Originator
	case ToAll:
		return v.Sender
	case ToLocal:
		return v.Sender
	default:
		return ""
	}
}
