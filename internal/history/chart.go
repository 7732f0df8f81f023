package history

import (
	"fmt"
	"time"

	"github.com/bkovacic/fitlog/internal/workout"
)

// ChartRow is one plotted point. Keys for sets a workout does not
// have are left out entirely so chart lines can connect over gaps,
// a zero there would draw a false dip instead.
type ChartRow map[string]any

// ExerciseChart is the per-set rep and weight series of one exercise,
// ready for a multi-line chart
type ExerciseChart struct {
	ChartData  []ChartRow `json:"chartData"`
	RepKeys    []string   `json:"repKeys"`
	WeightKeys []string   `json:"weightKeys"`
}

// SegmentVolume is the total volume lifted within one segment
type SegmentVolume struct {
	Segment     string  `json:"segment"`
	TotalVolume float64 `json:"totalVolume"`
}

// SegmentKeyFunc buckets a daily record into a named segment
type SegmentKeyFunc func(record DailyRecord) string

// SegmentByDate buckets by the calendar date itself
func SegmentByDate(record DailyRecord) string {
	return record.Date
}

// SegmentByWeekday buckets by the day of the week
func SegmentByWeekday(record DailyRecord) string {
	date, err := time.Parse(workout.DateLayout, record.Date)
	if err != nil {
		return "unknown"
	}
	return date.Weekday().String()
}

// PivotExerciseHistory turns a date-ascending workout list of a single
// exercise into one row per workout, with "Set k Reps" and
// "Set k Weight" columns up to the widest workout in the list
func PivotExerciseHistory(workouts []workout.Workout) ExerciseChart {
	maxSets := 0
	for _, w := range workouts {
		if len(w.Sets) > maxSets {
			maxSets = len(w.Sets)
		}
	}

	chartData := make([]ChartRow, 0, len(workouts))
	for _, w := range workouts {
		row := ChartRow{
			"date": w.DateKey(),
		}
		for _, s := range w.Sets {
			row[fmt.Sprintf("Set %d Reps", s.SetNumber)] = s.Reps
			row[fmt.Sprintf("Set %d Weight", s.SetNumber)] = s.Weight
		}
		chartData = append(chartData, row)
	}

	repKeys := make([]string, 0, maxSets)
	weightKeys := make([]string, 0, maxSets)
	for k := 1; k <= maxSets; k++ {
		repKeys = append(repKeys, fmt.Sprintf("Set %d Reps", k))
		weightKeys = append(weightKeys, fmt.Sprintf("Set %d Weight", k))
	}

	return ExerciseChart{
		ChartData:  chartData,
		RepKeys:    repKeys,
		WeightKeys: weightKeys,
	}
}

// VolumeBySegment sums the daily workout volumes into segments given
// by the key func, segments ordered by first occurrence in the input
func VolumeBySegment(records []DailyRecord, keyFn SegmentKeyFunc) []SegmentVolume {
	segment2index := make(map[string]int)
	segments := make([]SegmentVolume, 0)

	for _, record := range records {
		var dayVolume float64
		for _, wv := range record.Workouts {
			dayVolume += wv.TotalVolume
		}

		segment := keyFn(record)
		if i, ok := segment2index[segment]; ok {
			segments[i].TotalVolume += dayVolume
			continue
		}
		segment2index[segment] = len(segments)
		segments = append(segments, SegmentVolume{
			Segment:     segment,
			TotalVolume: dayVolume,
		})
	}

	return segments
}
