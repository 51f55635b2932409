//go:build integration

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateQuestionsPrefersUnseenThenTopsUp(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	lang := createTestLanguage(t, h, "es")
	questions := seedTestQuestions(t, h, lang.ID, 6)

	// Four of six already seen: the two unseen come first in id order,
	// then the bank tops up from the seen pool.
	exclude := []int{questions[0].ID, questions[1].ID, questions[2].ID, questions[3].ID}
	allocated, err := h.questions.AllocateQuestions(ctx, lang.ID, 4, exclude)
	require.NoError(t, err)
	require.Len(t, allocated, 4)

	got := make([]int, 0, len(allocated))
	for _, q := range allocated {
		got = append(got, q.ID)
	}
	assert.Equal(t, []int{questions[4].ID, questions[5].ID, questions[0].ID, questions[1].ID}, got)
}

func TestAllocateQuestionsExcludesWithinFullBank(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	lang := createTestLanguage(t, h, "es")
	questions := seedTestQuestions(t, h, lang.ID, 8)

	exclude := []int{questions[1].ID, questions[3].ID}
	allocated, err := h.questions.AllocateQuestions(ctx, lang.ID, 4, exclude)
	require.NoError(t, err)
	require.Len(t, allocated, 4)

	// Plenty of unseen questions remain, so none of the excluded appear
	for _, q := range allocated {
		assert.NotContains(t, exclude, q.ID)
	}
	assert.Equal(t, []int{questions[0].ID, questions[2].ID, questions[4].ID, questions[5].ID},
		[]int{allocated[0].ID, allocated[1].ID, allocated[2].ID, allocated[3].ID})
}

func TestAllocateQuestionsOtherLanguageInvisible(t *testing.T) {
	db := SharedTestDBSetup(t)
	defer db.Close()
	defer CleanupTestDatabase(db, t)

	h := newPracticeHarness(db)
	ctx := context.Background()
	spanish := createTestLanguage(t, h, "es")
	french := createTestLanguage(t, h, "fr")
	seedTestQuestions(t, h, spanish.ID, 3)
	frenchQuestions := seedTestQuestions(t, h, french.ID, 3)

	allocated, err := h.questions.AllocateQuestions(ctx, french.ID, 5, nil)
	require.NoError(t, err)
	require.Len(t, allocated, 3)
	for i, q := range allocated {
		assert.Equal(t, frenchQuestions[i].ID, q.ID)
		assert.Equal(t, french.ID, q.LanguageID)
	}
}
