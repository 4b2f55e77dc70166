package persian

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	ptime "github.com/yaa110/go-persian-calendar"
)

// TehranOffset is the fixed UTC+3:30 offset applied to every Jalali
// conversion. Historical Iranian DST rules are deliberately not modeled: the
// upstream data uses this fixed offset, and changing it would shift the
// calendar keys of already-stored analytics buckets.
var TehranOffset = time.FixedZone("Asia/Tehran", 3*3600+30*60)

// ParseJalali parses a Jalali timestamp of the form
// "1404-08-25 17:39:54" (time part optional) as Tehran local time and
// returns the corresponding UTC instant.
func ParseJalali(s string) (time.Time, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) == 0 {
		return time.Time{}, oops.Errorf("empty jalali date")
	}

	dateFields := strings.Split(parts[0], "-")
	if len(dateFields) != 3 {
		return time.Time{}, oops.With("value", s).Errorf("malformed jalali date")
	}

	timePart := "00:00:00"
	if len(parts) > 1 {
		timePart = parts[1]
	}
	timeFields := strings.Split(timePart, ":")
	if len(timeFields) != 3 {
		return time.Time{}, oops.With("value", s).Errorf("malformed jalali time")
	}

	nums := make([]int, 0, 6)
	for _, f := range append(dateFields, timeFields...) {
		v, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, oops.With("value", s).Wrap(err)
		}
		nums = append(nums, v)
	}

	year, month, day := nums[0], nums[1], nums[2]
	hour, minute, second := nums[3], nums[4], nums[5]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, oops.With("value", s).Errorf("jalali date out of range")
	}

	pt := ptime.Date(year, ptime.Month(month), day, hour, minute, second, 0, TehranOffset)
	return pt.Time().UTC(), nil
}

// JalaliDate formats the given instant as a Jalali "yyyy-MM-dd" string in
// Tehran local time, the form stored on analytics buckets.
func JalaliDate(t time.Time) string {
	return ptime.New(t.In(TehranOffset)).Format("yyyy-MM-dd")
}
