package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/model"
)

func sampleState(t *testing.T, id model.RespondentID) *model.ConversationState {
	t.Helper()
	st := model.NewConversationState(id)
	st.CurrentQuestion = "q2"
	st.Answers["q1"] = model.NewTextAnswer("Ann Marie Lee")
	single, err := model.NewSingleChoiceAnswer("lease", "my uncle")
	require.NoError(t, err)
	st.Answers["q1_3"] = single
	multi, err := model.NewMultiChoiceAnswer([]string{"crops", "other"}, map[string]string{"other": ""})
	require.NoError(t, err)
	st.Answers["q2_1"] = multi
	st.PendingSelections = []string{"b", "a"}
	st.AwaitComment("a", "Why?")
	st.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return st
}

func storeContract(t *testing.T, store StateStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrStateNotFound)

	want := sampleState(t, 42)
	require.NoError(t, store.Put(ctx, want))

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, want.CurrentQuestion, got.CurrentQuestion)
	assert.Equal(t, want.PendingSelections, got.PendingSelections)
	assert.Equal(t, "a", got.AwaitingCommentFor)
	assert.Equal(t, want.Answers, got.Answers)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

	_, err = store.Get(ctx, 43)
	assert.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, store.Delete(ctx, 42))
	_, err = store.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.NoError(t, store.Delete(ctx, 42))
}

func TestMemoryStateStore(t *testing.T) {
	storeContract(t, NewMemoryStateStore())
}

func TestMemoryStateStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	st := sampleState(t, 7)
	require.NoError(t, store.Put(ctx, st))

	st.PendingSelections[0] = "mutated"
	got, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got.PendingSelections)

	got.CurrentQuestion = "elsewhere"
	again, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "q2", again.CurrentQuestion)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStateStore_NegativeIDs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	require.NoError(t, store.Put(ctx, model.NewConversationState(-100123)))
	_, err := store.Get(ctx, -100123)
	assert.NoError(t, err)
}

func TestRedisStateStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storeContract(t, NewRedisStateStore(client, time.Hour))
}

func TestRedisStateStore_Expires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	store := NewRedisStateStore(client, time.Minute)
	require.NoError(t, store.Put(ctx, model.NewConversationState(5)))
	assert.True(t, mr.Exists("surveybot:state:5"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStateStore_CorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("surveybot:state:9", "{not json"))
	_, err := NewRedisStateStore(client, time.Minute).Get(context.Background(), 9)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStateNotFound)
}
