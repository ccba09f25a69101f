package control

import (
	"testing"

	"github.com/markusressel/controlbox/internal/fp"
	"github.com/stretchr/testify/assert"
)

func newTestProfile(utc *fakeUtc, target *fakeInput) *SetpointProfile {
	profile := NewSetpointProfile(Fixed[ProcessValue](target), Fixed[UtcSource](utc))
	profile.SetEnabled(true)
	profile.SetStart(1000)
	profile.SetPoints([]ProfilePoint{
		{Time: 20, Temperature: fp.FromInt(21)},
		{Time: 10, Temperature: fp.FromInt(20)},
	})
	return profile
}

func TestSetpointProfile_Interpolates(t *testing.T) {
	// GIVEN
	utc := &fakeUtc{seconds: 1015}
	target := &fakeInput{setting: fp.FromInt(5)}
	profile := newTestProfile(utc, target)

	// WHEN
	profile.Update(0)

	// THEN
	assert.True(t, profile.IsDriving())
	assert.Equal(t, fp.FromFloat(20.5), target.setting)
	assert.True(t, target.valid)
}

func TestSetpointProfile_BeforeFirstPoint(t *testing.T) {
	// GIVEN
	utc := &fakeUtc{seconds: 1005}
	target := &fakeInput{setting: fp.FromInt(5)}
	profile := newTestProfile(utc, target)

	// WHEN
	profile.Update(0)

	// THEN
	assert.True(t, profile.IsDriving())
	assert.Equal(t, fp.FromInt(5), target.setting)
}

func TestSetpointProfile_AfterLastPoint(t *testing.T) {
	// GIVEN
	utc := &fakeUtc{seconds: 5000}
	target := &fakeInput{setting: fp.FromInt(5)}
	profile := newTestProfile(utc, target)

	// WHEN
	profile.Update(0)

	// THEN
	assert.True(t, profile.IsDriving())
	assert.Equal(t, fp.FromInt(21), target.setting)
}

func TestSetpointProfile_NoTime(t *testing.T) {
	// GIVEN
	utc := &fakeUtc{seconds: 0}
	target := &fakeInput{setting: fp.FromInt(5)}
	profile := newTestProfile(utc, target)

	// WHEN
	profile.Update(0)

	// THEN
	assert.False(t, profile.IsDriving())
	assert.Equal(t, fp.FromInt(5), target.setting)
}

func TestSetpointProfile_Disabled(t *testing.T) {
	// GIVEN
	utc := &fakeUtc{seconds: 1015}
	target := &fakeInput{setting: fp.FromInt(5)}
	profile := newTestProfile(utc, target)
	profile.SetEnabled(false)

	// WHEN
	profile.Update(0)

	// THEN
	assert.False(t, profile.IsDriving())
	assert.Equal(t, fp.FromInt(5), target.setting)
}

func TestSetpointProfile_DuplicateTimestampIsStep(t *testing.T) {
	// GIVEN
	profile := NewSetpointProfile(nil, nil)
	profile.SetPoints([]ProfilePoint{
		{Time: 0, Temperature: fp.FromInt(10)},
		{Time: 10, Temperature: fp.FromInt(20)},
		{Time: 10, Temperature: fp.FromInt(30)},
		{Time: 20, Temperature: fp.FromInt(40)},
	})

	// WHEN
	before, _ := profile.SettingAt(9)
	at, _ := profile.SettingAt(10)
	after, _ := profile.SettingAt(15)

	// THEN
	assert.InDelta(t, 19.0, before.Float(), 0.001)
	assert.Equal(t, fp.FromInt(30), at)
	assert.Equal(t, fp.FromInt(35), after)
}
