package ics

import (
	"bytes"
	"image/color"
	"os"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedview/internal/model"
)

var team = Source{ID: "team", URL: "testdata/team.ics", Category: "Team"}

func parseFixture(t *testing.T, opts ParseOptions) map[string]*model.Schedule {
	t.Helper()
	body, err := os.ReadFile("testdata/team.ics")
	require.NoError(t, err)

	list, err := Parse(team, body, opts)
	require.NoError(t, err)

	byDesc := make(map[string]*model.Schedule, len(list))
	for _, s := range list {
		byDesc[s.Description] = s
	}
	require.Len(t, byDesc, len(list))
	return byDesc
}

func at(day, h, m int) time.Time {
	return time.Date(2024, 3, day, h, m, 0, 0, time.UTC)
}

func TestParseEvents(t *testing.T) {
	got := parseFixture(t, ParseOptions{Location: time.UTC})
	assert.Len(t, got, 5)
	assert.NotContains(t, got, "Gone")
	assert.NotContains(t, got, "Backwards")
	assert.NotContains(t, got, "Someday")

	standup := got["Standup"]
	require.NotNil(t, standup)
	assert.Equal(t, at(12, 9, 0), standup.Start)
	assert.Equal(t, at(12, 10, 30), standup.End)
	assert.Equal(t, "Room 4\nDaily sync", standup.Notes)
	assert.Equal(t, "Work", standup.Category)
	assert.Equal(t, color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff}, standup.Color)
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("team/ev-1")), standup.ID)

	holiday := got["Holiday"]
	require.NotNil(t, holiday)
	assert.Equal(t, at(13, 0, 0), holiday.Start)
	assert.Equal(t, at(14, 0, 0), holiday.End)
	assert.Equal(t, "Team", holiday.Category)

	// Berlin is UTC+1 before the March transition.
	review := got["Review"]
	require.NotNil(t, review)
	assert.Equal(t, at(12, 13, 0), review.Start)
	assert.Equal(t, at(12, 14, 0), review.End)
}

func TestParseTodos(t *testing.T) {
	got := parseFixture(t, ParseOptions{Location: time.UTC})

	report := got["Write report"]
	require.NotNil(t, report)
	assert.Equal(t, at(12, 12, 0), report.Start)
	assert.Equal(t, at(12, 13, 0), report.End)
	require.NotNil(t, report.Complete)
	assert.InDelta(t, 0.4, *report.Complete, 1e-9)
	assert.False(t, report.Done)
	assert.Equal(t, []string{"todo"}, report.Icons)

	ship := got["Ship"]
	require.NotNil(t, ship)
	assert.Equal(t, at(14, 8, 0), ship.Start)
	assert.Equal(t, ship.Start, ship.End)
	assert.True(t, ship.Done)
	require.NotNil(t, ship.Complete)
	assert.Equal(t, 1.0, *ship.Complete)
}

func TestParseStableIDs(t *testing.T) {
	first := parseFixture(t, ParseOptions{Location: time.UTC})
	second := parseFixture(t, ParseOptions{Location: time.UTC})
	for desc, s := range first {
		assert.Equal(t, s.ID, second[desc].ID, desc)
	}
}

func TestParseWindow(t *testing.T) {
	got := parseFixture(t, ParseOptions{
		Location:   time.UTC,
		RangeStart: at(13, 0, 0),
		RangeEnd:   at(14, 0, 0),
	})
	assert.Len(t, got, 1)
	assert.Contains(t, got, "Holiday")
}

func TestParseDisplayLocation(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	got := parseFixture(t, ParseOptions{Location: seoul})

	standup := got["Standup"]
	assert.Equal(t, seoul, standup.Start.Location())
	assert.True(t, at(12, 9, 0).Equal(standup.Start))

	// All-day values are midnight in the display zone.
	holiday := got["Holiday"]
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, seoul), holiday.Start)
}

func TestParseEmptyBody(t *testing.T) {
	_, err := Parse(team, nil, ParseOptions{})
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	s := model.NewSchedule(at(12, 9, 0), at(12, 11, 0))
	s.Description = "Planning"
	s.Notes = "Quarterly goals"
	s.Category = "Work"
	s.Color = color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}

	clone := s.Clone()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, []*model.Schedule{clone, nil}))
	assert.Contains(t, buf.String(), "UID:"+s.ID.String())

	got, err := Parse(Source{ID: "export"}, buf.Bytes(), ParseOptions{Location: time.UTC})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.Description, got[0].Description)
	assert.Equal(t, s.Notes, got[0].Notes)
	assert.Equal(t, s.Category, got[0].Category)
	assert.Equal(t, s.Color, got[0].Color)
	assert.Equal(t, s.Start, got[0].Start)
	assert.Equal(t, s.End, got[0].End)
}
