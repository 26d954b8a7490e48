// Package domain models DX cluster telnet output and turns single lines of it
// into typed spot records.
//
// # Data Source
//
// DX cluster servers (DXSpider, AR-Cluster, CC Cluster) push announcements to
// connected users as plain text lines over telnet. The servers agree on what
// is announced but not on exactly how, so the same "station heard" report can
// arrive in several layouts. Lines arrive one at a time from the telnet or
// file adapters; this package never touches a socket or a file.
//
// # Line Formats
//
// DX spot, fixed-column layout (AR-Cluster, CC Cluster), 75 characters with the
// time in columns 71-75:
//
//	DX de ZS6WN:     21075.4  CX2DAJ       FT8                            1625Z
//
// DXSpider appends the spotter's Maidenhead locator after the time:
//
//	DX de DJ1TO:      3780.0  OH5Z         LSB                            2200Z JO62
//
// Reverse Beacon Network skimmers spot as "<call>-#" and put signal metrics in
// the comment, either speed or the spotted station's locator:
//
//	DX de EA5WU-#:    7012.0  UA3AKO       CW    24 dB  28 WPM  CQ      2101Z
//	DX de KM3T-#:    14074.0  JA1XYZ       FT8  -12 dB  FK68    CQ      2101Z
//
// Solar bulletins carry the hour only, with or without a trailing "Z":
//
//	WWV de VE7CC <15Z> :   SFI=68, A=9, K=2, No Storms -> Minor w/G1
//	WCY de DK0WCY-1 <22> : K=4 expK=2 A=14 R=0 SFI=68 SA=qui GMF=act Au=no
//
// Announcements and weather messages, CC Cluster with "<HHMMZ>", DXSpider
// without:
//
//	To ALL de CT2IDL <1044Z> : TNX qso..
//	To LOCAL de IW5CLM: off
//	WX de LA3WAA <1001Z> :  Sunny and warm
//
// # Classification
//
// The [Registry] holds an ordered list of rules. Each rule binds a category
// and dialect to a regular expression with named groups and an extractor that
// converts the captures into a [Spot]. The first rule that matches wins, so
// narrower layouts are registered ahead of looser ones:
//
//	DX/rbn > DX/dxspider > DX/cccluster > DX/arcluster > DX/generic
//
// The generic DX rule accepts any token in the frequency position. A line it
// matches whose frequency does not parse is reported as a [MalformedFieldError]
// rather than as unrecognized, so callers can tell garbled spots from noise.
//
// # Absent Values
//
// Fields a dialect does not carry are [Optional] and absent, never zero. The
// engine does not invent timestamps: a spot without a time has an absent Time
// and the caller decides what "now" means. [SpotEvent] records the receive
// time separately.
//
// # ID Generation
//
// Event IDs are deterministic SHA-256 hashes of category|receive date|line.
// Relaying nodes often repeat the same spot; the same line on the same day
// yields the same ID, which the pipeline uses for duplicate suppression and
// the SQLite archive uses for idempotent inserts. See [generateID].
package domain
