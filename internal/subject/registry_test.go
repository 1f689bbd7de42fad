package subject_test

import (
	"testing"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/subject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildThenValidate(t *testing.T) {
	r := subject.New()

	subj, err := r.Build("chat_say_room", map[string]string{"room_id": "arkham_1"})
	require.NoError(t, err)
	assert.Equal(t, "chat.say.room.arkham_1", subj)
	assert.True(t, r.Validate(subj))
}

func TestBuildMissingParameter(t *testing.T) {
	r := subject.New()

	_, err := r.Build("chat_say_room", map[string]string{})
	require.Error(t, err)
	ae, ok := err.(*apperr.Error)
	require.True(t, ok)
	assert.Equal(t, apperr.MissingParameter, ae.Kind)
	assert.Equal(t, []string{"room_id"}, ae.Missing)
}

func TestBuildInvalidValue(t *testing.T) {
	r := subject.New()

	_, err := r.Build("chat_say_room", map[string]string{"room_id": "has a space"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidValue))
}

func TestBuildUnknownPattern(t *testing.T) {
	r := subject.New()

	_, err := r.Build("no_such_pattern", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.PatternNotFound))
}

func TestBuildSubjectTooLong(t *testing.T) {
	r := subject.New(subject.WithMaxLength(20))

	_, err := r.Build("chat_say_room", map[string]string{"room_id": "a_very_long_room_identifier_indeed"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SubjectTooLong))
}

func TestValidateRejectsStructuralMismatch(t *testing.T) {
	r := subject.New()

	assert.False(t, r.Validate("chat.say.room")) // missing the room_id token
	assert.False(t, r.Validate("chat.say.room.arkham_1.extra"))
	assert.False(t, r.Validate("completely.unknown.subject"))
}

func TestRegisterRejectsInvalidTemplates(t *testing.T) {
	r := subject.New()

	cases := []struct {
		name     string
		template string
		required []string
	}{
		{"leading_dot", ".foo.{id}", []string{"id"}},
		{"trailing_dot", "foo.{id}.", []string{"id"}},
		{"double_dot", "foo..{id}", []string{"id"}},
		{"missing_placeholder", "foo.bar", []string{"id"}},
	}
	for _, c := range cases {
		err := r.Register(c.name, c.template, c.required, "")
		require.Error(t, err, c.name)
		assert.True(t, apperr.Is(err, apperr.InvalidPattern), c.name)
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := subject.New()
	err := r.Register("chat_say_room", "chat.say.room.{room_id}", []string{"room_id"}, "dup")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InvalidPattern))
}

func TestSubscriptionPattern(t *testing.T) {
	r := subject.New()

	pat, err := r.SubscriptionPattern("chat_say_room")
	require.NoError(t, err)
	assert.Equal(t, "chat.say.room.*", pat)

	pat, err = r.SubscriptionPattern("chat_global")
	require.NoError(t, err)
	assert.Equal(t, "chat.global", pat)
}

func TestSubscriptionPatternRejectsOverlyBroad(t *testing.T) {
	r := subject.New()

	require.NoError(t, r.Register("two_wild", "a.{x}.b.{y}", []string{"x", "y"}, ""))
	pat, err := r.SubscriptionPattern("two_wild")
	require.NoError(t, err)
	assert.Equal(t, "a.*.b.*", pat)

	require.NoError(t, r.Register("three_wild", "a.{x}.{y}.{z}", []string{"x", "y", "z"}, ""))
	_, err = r.SubscriptionPattern("three_wild")
	require.Error(t, err)

	require.NoError(t, r.Register("single_wild", "{only}", []string{"only"}, ""))
	_, err = r.SubscriptionPattern("single_wild")
	require.Error(t, err)

	require.NoError(t, r.Register("leading_wild", "{x}.fixed", []string{"x"}, ""))
	_, err = r.SubscriptionPattern("leading_wild")
	require.Error(t, err)
}

func TestCacheInvalidatedOnRegister(t *testing.T) {
	r := subject.New()

	assert.False(t, r.Validate("greet.hello.world"))
	require.NoError(t, r.Register("greet", "greet.{who}.world", []string{"who"}, ""))
	assert.True(t, r.Validate("greet.hello.world"))
}

func TestMetricsTrackCounts(t *testing.T) {
	r := subject.New()

	_, _ = r.Build("chat_say_room", map[string]string{"room_id": "r1"})
	r.Validate("chat.say.room.r1")
	r.Validate("chat.say.room.r1") // cache hit

	snap := r.Metrics()
	assert.EqualValues(t, 1, snap.BuildCount)
	assert.EqualValues(t, 2, snap.ValidationCount)
	assert.EqualValues(t, 1, snap.CacheHits)
	assert.EqualValues(t, 1, snap.CacheMisses)
}
