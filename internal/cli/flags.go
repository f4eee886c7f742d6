package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/babbly/internal/model"
	"github.com/spf13/pflag"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts an absolute time, a clock time meaning today ("07:30"),
// or an offset from now ("-45m").
func parseTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return now, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	loc := now.Location()
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", s, loc); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

type metaFlag struct {
	flag  string
	key   string
	kind  string // string, number, bool
	usage string
}

// metaFlags maps CLI flags onto metadata JSON keys. A flag is only sent when
// set, so per-type defaults still apply to everything else.
var metaFlags = []metaFlag{
	{"sub-type", "subType", "string", "Feed: breast or bottle"},
	{"side", "side", "string", "Feed/pump side"},
	{"amount", "amount", "string", "Feed/pump amount"},
	{"burped", "burped", "bool", "Feed: burped"},
	{"condition", "condition", "string", "Diaper: wet, dirty, both or dry"},
	{"color", "color", "string", "Diaper color"},
	{"texture", "texture", "string", "Diaper texture"},
	{"amount-level", "amountLevel", "string", "Diaper amount level"},
	{"rash", "hasRash", "bool", "Diaper: rash"},
	{"smell", "hasUnusualSmell", "bool", "Diaper: unusual smell"},
	{"blowout", "isBlowout", "bool", "Diaper: blowout"},
	{"location", "location", "string", "Sleep location"},
	{"quality", "quality", "number", "Sleep quality 1-5"},
	{"duration", "duration", "duration", "Sleep length, e.g. 1h30m"},
	{"pump-type", "pumpType", "string", "Pump type"},
	{"storage", "storage", "string", "Pump storage"},
	{"discomfort", "discomfortLevel", "number", "Pump discomfort 1-3"},
	{"name", "name", "string", "Medication name"},
	{"dose", "dose", "string", "Medication dose"},
	{"value", "value", "string", "Temperature reading"},
	{"unit", "unit", "string", "Temperature unit F or C"},
	{"text", "text", "string", "Note text"},
	{"notes", "notes", "string", "Free-form notes"},
}

func addMetadataFlags(fs *pflag.FlagSet) {
	for _, f := range metaFlags {
		if f.kind == "bool" {
			fs.Bool(f.flag, false, f.usage)
			continue
		}
		fs.String(f.flag, "", f.usage)
	}
	fs.String("meta", "", "Metadata as JSON; individual flags override its keys")
}

// metadataFromFlags returns the metadata described by --meta and the field
// flags laid over base, or nil when none were given. base may be nil.
func metadataFromFlags(fs *pflag.FlagSet, t model.EventType, base model.Metadata) (model.Metadata, error) {
	changed := fs.Changed("meta")
	for _, f := range metaFlags {
		changed = changed || fs.Changed(f.flag)
	}
	if !changed {
		return nil, nil
	}

	fields := map[string]any{}
	if base != nil {
		b, err := json.Marshal(base)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
	}
	if raw, _ := fs.GetString("meta"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("invalid --meta: %w", err)
		}
	}

	for _, f := range metaFlags {
		if !fs.Changed(f.flag) {
			continue
		}
		switch f.kind {
		case "bool":
			v, _ := fs.GetBool(f.flag)
			fields[f.key] = v
		case "number":
			s, _ := fs.GetString(f.flag)
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("--%s: %q is not a number", f.flag, s)
			}
			fields[f.key] = n
		case "duration":
			s, _ := fs.GetString(f.flag)
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("--%s: %w", f.flag, err)
			}
			fields[f.key] = d.Milliseconds()
		default:
			fields[f.key], _ = fs.GetString(f.flag)
		}
	}

	raw, _ := json.Marshal(fields)
	return model.DecodeMetadata(t, raw)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
