package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Callsign character classes. Strict layouts carry uppercase calls of at
// least three characters; looser layouts accept any case and length, and
// the extractor uppercases.
const (
	strictCall = `[A-Z0-9/\-#]{3,}`
	looseCall  = `[A-Za-z0-9/\-#]+`
)

const (
	// ccClusterWidth is the width of a fixed-column DX line; the time
	// occupies the last five columns.
	ccClusterWidth = 75
)

// DefaultRegistry holds the built-in rules, most specific first.
var DefaultRegistry = MustNewRegistry(defaultRules()...)

func defaultRules() []Rule {
	return []Rule{
		// Skimmer spots: "-#" spotter and "NN dB" metrics in the comment.
		newRule(CategoryRBN, DialectRBN,
			`^DX de +(?P<spotter>[A-Za-z0-9/]+-#):? +(?P<frequency>\d+(?:\.\d+)?) +(?P<spotted>`+looseCall+`) +`+
				`(?P<mode>[A-Za-z0-9]{2,}) +(?P<snr>-?\d{1,3}) +dB`+
				`(?: +(?P<speed>\d{1,3}) +(?P<speed_unit>WPM|BPS))?`+
				`(?: +(?P<locator>[A-R]{2}\d{2}))?`+
				`(?: +(?P<info>\S.*?))? +(?P<time>\d{4})Z$`,
			extractRBN, "spotter", "frequency", "spotted", "mode", "snr", "time"),

		newRule(CategoryDX, DialectDXSpider,
			`^DX de +(?P<spotter>`+strictCall+`):? +(?P<frequency>\d+\.\d{1,2}) +(?P<spotted>`+strictCall+`) +`+
				`(?:(?P<comment>.*\S) +)?(?P<time>\d{4})Z +(?P<locator>[A-R]{2}\d{2})$`,
			extractDX, "spotter", "frequency", "spotted", "time", "locator"),

		newRule(CategoryDX, DialectCCCluster,
			`^DX de (?P<spotter>`+strictCall+`):? +(?P<frequency>\d+\.\d) +(?P<spotted>`+strictCall+`) +`+
				`(?:(?P<comment>.*\S) +)?(?P<time>\d{4})Z$`,
			extractDX, "spotter", "frequency", "spotted", "time").
			withGuard(fixedColumns),

		newRule(CategoryDX, DialectARCluster,
			`^DX de +(?P<spotter>`+looseCall+`):? +(?P<frequency>\d+(?:\.\d+)?) +(?P<spotted>`+looseCall+`)`+
				`(?: +(?P<comment>.*?))? +(?P<time>\d{4})Z$`,
			extractDX, "spotter", "frequency", "spotted", "time"),

		// Catch-all: any token in the frequency slot, time optional. Garbled
		// spots land here and surface as malformed fields.
		newRule(CategoryDX, DialectGeneric,
			`^DX de +(?P<spotter>[^\s:]*):? +(?P<frequency>\S+) +(?P<spotted>\S+)`+
				`(?: +(?P<comment>.*?))?(?: +(?P<time>\d{4})Z)?(?: +(?P<locator>[A-Ra-r]{2}\d{2}))?$`,
			extractDX, "spotter", "frequency", "spotted"),

		newRule(CategoryWWV, DialectARCluster, wwvPattern(`<(?P<hour>\d{2})Z>`), extractWWV, wwvGroups...),
		newRule(CategoryWWV, DialectDXSpider, wwvPattern(`<(?P<hour>\d{2})>`), extractWWV, wwvGroups...),

		newRule(CategoryWCY, DialectDXSpider,
			`^WCY de +(?P<originator>`+looseCall+`) +<(?P<hour>\d{2})Z?> *: *`+
				`K=(?P<k>\d{1,3})(?: +expK=(?P<expk>\d{1,3}))? +A=(?P<a>\d{1,3})(?: +R=(?P<r>\d{1,3}))? +SFI=(?P<sfi>\d{1,3})`+
				`(?: +SA=(?P<sa>[A-Za-z]{1,3}))?(?: +GMF=(?P<gmf>[A-Za-z]{1,3}))?(?: +Au=(?P<aurora>[A-Za-z]{2,3}))?$`,
			extractWCY, "originator", "hour", "k", "a", "sfi"),

		newRule(CategoryWX, DialectCCCluster, messagePattern(`WX`, "originator", true), extractWX, "originator", "time", "message"),
		newRule(CategoryWX, DialectDXSpider, messagePattern(`WX`, "originator", false), extractWX, "originator", "message"),

		newRule(CategoryToAll, DialectCCCluster, messagePattern(`To (?P<recipient>ALL)`, "sender", true), extractToAll, "sender", "time", "message"),
		newRule(CategoryToAll, DialectDXSpider, messagePattern(`To (?P<recipient>ALL)`, "sender", false), extractToAll, "sender", "message"),

		newRule(CategoryToLocal, DialectCCCluster, messagePattern(`To (?P<recipient>LOCAL|Local)`, "sender", true), extractToLocal, "sender", "time", "message"),
		newRule(CategoryToLocal, DialectDXSpider, messagePattern(`To (?P<recipient>LOCAL|Local)`, "sender", false), extractToLocal, "sender", "message"),
	}
}

var wwvGroups = []string{"originator", "hour", "sfi", "a", "k"}

// wwvPattern builds a WWV rule around the dialect's hour token. The forecast
// after "->" is optional.
func wwvPattern(hour string) string {
	return `^WWV de +(?P<originator>` + looseCall + `) +` + hour + ` *: *` +
		`SFI=(?P<sfi>\d{1,3}), *A=(?P<a>\d{1,3}), *K=(?P<k>\d{1,3}),? *` +
		`(?P<conditions>.*?)(?: *-> *(?P<forecast>.*?))? *$`
}

// messagePattern builds a "<prefix> de <call>: text" rule. CC Cluster puts a
// "<HHMMZ>" stamp between the call and the colon.
func messagePattern(prefix, callGroup string, stamped bool) string {
	head := `^` + prefix + ` de +(?P<` + callGroup + `>` + looseCall + `)`
	if stamped {
		return head + ` +<(?P<time>\d{4})Z> *: *(?P<message>.*)$`
	}
	return head + `(?: *: *| +)(?P<message>.*)$`
}

// fixedColumns accepts DX lines in the 75 column layout with the time in the
// last five columns.
func fixedColumns(line string) bool {
	return len(line) == ccClusterWidth && line[ccClusterWidth-1] == 'Z'
}

var errAuroraFlag = errors.New("want yes or no")

// fieldReader converts captures for one category and keeps the first
// conversion failure.
type fieldReader struct {
	category Category
	caps     Captures
	err      error
}

func newFieldReader(category Category, caps Captures) *fieldReader {
	return &fieldReader{category: category, caps: caps}
}

func (f *fieldReader) fail(field, text string, err error) {
	if f.err == nil {
		f.err = &MalformedFieldError{Category: f.category, Field: field, Text: text, Err: err}
	}
}

func (f *fieldReader) callsign(name string) string {
	raw, _ := f.caps.Get(name)
	call, err := normalizeCallsign(raw)
	if err != nil {
		f.fail(name, raw, err)
		return ""
	}
	return call
}

func (f *fieldReader) frequency(name string) Frequency {
	raw, _ := f.caps.Get(name)
	freq, err := ParseFrequency(raw)
	if err != nil {
		f.fail(name, raw, err)
		return Frequency{}
	}
	return freq
}

func (f *fieldReader) integer(name string) int {
	raw, ok := f.caps.Get(name)
	if !ok {
		f.fail(name, "", fmt.Errorf("missing %s", name))
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		f.fail(name, raw, err)
		return 0
	}
	return v
}

func (f *fieldReader) optInteger(name string) Optional[int] {
	if _, ok := f.caps.Get(name); !ok {
		return None[int]()
	}
	v := f.integer(name)
	if f.err != nil {
		return None[int]()
	}
	return Some(v)
}

// optTime reads an HHMM group; optHour reads an HH bulletin hour.
func (f *fieldReader) optTime(name string) Optional[TimeOfDay] {
	return f.optClock(name, parseHHMM)
}

func (f *fieldReader) optHour(name string) Optional[TimeOfDay] {
	return f.optClock(name, parseHour)
}

func (f *fieldReader) optClock(name string, parse func(string) (TimeOfDay, error)) Optional[TimeOfDay] {
	raw, ok := f.caps.Get(name)
	if !ok {
		return None[TimeOfDay]()
	}
	t, err := parse(raw)
	if err != nil {
		f.fail(name, raw, err)
		return None[TimeOfDay]()
	}
	return Some(t)
}

func (f *fieldReader) optText(name string) Optional[string] {
	raw, ok := f.caps.Get(name)
	if !ok {
		return None[string]()
	}
	return normalizeText(raw)
}

func (f *fieldReader) optUpper(name string) Optional[string] {
	raw, ok := f.caps.Get(name)
	if !ok || raw == "" {
		return None[string]()
	}
	return Some(strings.ToUpper(raw))
}

func (f *fieldReader) optAurora(name string) Optional[bool] {
	raw, ok := f.caps.Get(name)
	if !ok {
		return None[bool]()
	}
	switch strings.ToLower(raw) {
	case "yes":
		return Some(true)
	case "no":
		return Some(false)
	default:
		f.fail(name, raw, errAuroraFlag)
		return None[bool]()
	}
}

func (f *fieldReader) dx() DX {
	dx := DX{
		Spotter:   f.callsign("spotter"),
		Spotted:   f.callsign("spotted"),
		Frequency: f.frequency("frequency"),
		Time:      f.optTime("time"),
		Comment:   f.optText("comment"),
		Locator:   f.optUpper("locator"),
	}
	if f.err == nil {
		dx.Band = bandFor(dx.Frequency)
		dx.Mode = modeFromComment(dx.Comment)
	}
	return dx
}

func extractDX(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryDX, caps)
	dx := f.dx()
	if f.err != nil {
		return nil, f.err
	}
	return dx, nil
}

func extractRBN(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryRBN, caps)
	rbn := RBN{
		DX:        f.dx(),
		SNR:       f.optInteger("snr"),
		Speed:     f.optInteger("speed"),
		SpeedUnit: f.optUpper("speed_unit"),
		Info:      f.optText("info"),
	}
	rbn.Mode = f.optUpper("mode")
	if f.err != nil {
		return nil, f.err
	}
	return rbn, nil
}

func extractWWV(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryWWV, caps)
	wwv := WWV{
		Originator: f.callsign("originator"),
		Time:       f.optHour("hour"),
		SFI:        f.integer("sfi"),
		A:          f.integer("a"),
		K:          f.integer("k"),
		Conditions: f.optText("conditions"),
		Forecast:   f.optText("forecast"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return wwv, nil
}

func extractWCY(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryWCY, caps)
	wcy := WCY{
		Originator: f.callsign("originator"),
		Time:       f.optHour("hour"),
		K:          f.integer("k"),
		ExpK:       f.optInteger("expk"),
		A:          f.integer("a"),
		R:          f.optInteger("r"),
		SFI:        f.integer("sfi"),
		SA:         f.optText("sa"),
		GMF:        f.optText("gmf"),
		Aurora:     f.optAurora("aurora"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return wcy, nil
}

func extractWX(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryWX, caps)
	wx := WX{
		Originator: f.callsign("originator"),
		Time:       f.optTime("time"),
		Message:    f.optText("message"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return wx, nil
}

func extractToAll(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryToAll, caps)
	msg := ToAll{
		Sender:    f.callsign("sender"),
		Recipient: f.optUpper("recipient"),
		Time:      f.optTime("time"),
		Message:   f.optText("message"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return msg, nil
}

func extractToLocal(caps Captures) (Spot, error) {
	f := newFieldReader(CategoryToLocal, caps)
	msg := ToLocal{
		Sender:    f.callsign("sender"),
		Recipient: f.optUpper("recipient"),
		Time:      f.optTime("time"),
		Message:   f.optText("message"),
	}
	if f.err != nil {
		return nil, f.err
	}
	return msg, nil
}
