package service

import (
	"context"
	"strings"
	"testing"

	"expohall/internal/docstore"
	"expohall/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testEventID = "expo-2026"

func newFloorplanFixture(t *testing.T, booths []domain.Booth, exhibitorIDs ...string) (*FloorplanService, *docstore.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	for _, id := range exhibitorIDs {
		require.NoError(t, store.Set(ctx, exhibitorsCollection(testEventID), id, map[string]any{
			"name":     "Exhibitor " + id,
			"booth_id": "",
		}, false))
	}
	svc := NewFloorplanService(store, zap.NewNop())
	require.NoError(t, svc.SaveDesign(ctx, testEventID, booths))
	return svc, store
}

func boothByID(t *testing.T, booths []domain.Booth, id string) domain.Booth {
	t.Helper()
	for i := range booths {
		if booths[i].ID == id {
			return booths[i]
		}
	}
	t.Fatalf("booth %s not found", id)
	return domain.Booth{}
}

func exhibitorBoothID(t *testing.T, store *docstore.MemoryStore, exID string) string {
	t.Helper()
	doc, err := store.Get(context.Background(), exhibitorsCollection(testEventID), exID)
	require.NoError(t, err)
	v, _ := doc.Fields["booth_id"].(string)
	return v
}

func TestSaveDesign_RejectsDuplicateBoothID(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewFloorplanService(store, zap.NewNop())

	err := svc.SaveDesign(context.Background(), testEventID, []domain.Booth{
		{ID: "A1", X: 0, Y: 0, W: 10, H: 10},
		{ID: "a1", X: 20, Y: 0, W: 10, H: 10},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate booth id")
}

func TestLoadDesign_MissingDocumentIsEmptyPlan(t *testing.T) {
	store := docstore.NewMemoryStore()
	svc := NewFloorplanService(store, zap.NewNop())

	booths, err := svc.LoadDesign(context.Background(), testEventID)
	require.NoError(t, err)
	assert.Empty(t, booths)
}

func TestLoadDesign_RoundTripThroughStore(t *testing.T) {
	saved := []domain.Booth{
		{ID: "B01", X: 0, Y: 0, W: 30, H: 20, ExID: "ex1"},
		{ID: "B02", X: 40, Y: 0, W: 30, H: 20},
	}
	_, store := newFloorplanFixture(t, saved, "ex1")

	// 另一个服务实例从同一文档库装载
	svc2 := NewFloorplanService(store, zap.NewNop())
	booths, err := svc2.LoadDesign(context.Background(), testEventID)
	require.NoError(t, err)
	assert.Equal(t, saved, booths)
}

func TestAssignExhibitorToBooth_ClearsConflictingHolder(t *testing.T) {
	svc, store := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10},
	}, "ex1", "ex2")
	ctx := context.Background()

	res, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cleared)
	assert.Equal(t, "B01", exhibitorBoothID(t, store, "ex1"))

	// ex2 抢占同一展位：ex1 的占用被清除
	res, err = svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cleared)
	assert.Equal(t, "B01", exhibitorBoothID(t, store, "ex2"))
	assert.Equal(t, "", exhibitorBoothID(t, store, "ex1"))

	booths, err := svc.Design(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, "ex2", boothByID(t, booths, "B01").ExID)
}

func TestAssignExhibitorToBooth_Idempotent(t *testing.T) {
	svc, store := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10},
	}, "ex1")
	ctx := context.Background()

	_, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)

	// 同一调用重复执行收敛到同一状态，且无可清除的冲突
	res, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cleared)
	assert.Equal(t, "B01", exhibitorBoothID(t, store, "ex1"))

	booths, err := svc.Design(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, "ex1", boothByID(t, booths, "B01").ExID)
}

func TestAssignExhibitorToBooth_MovesExhibitorBetweenBooths(t *testing.T) {
	svc, store := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10},
		{ID: "B02", X: 20, W: 10, H: 10},
	}, "ex1")
	ctx := context.Background()

	_, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B02", "ex1")
	require.NoError(t, err)

	// 换到 B01：无冲突占用者，B02 上的旧标记被清空
	res, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cleared)
	assert.Equal(t, "B01", exhibitorBoothID(t, store, "ex1"))

	booths, err := svc.Design(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, "ex1", boothByID(t, booths, "B01").ExID)
	assert.Equal(t, "", boothByID(t, booths, "B02").ExID)
}

func TestAssignExhibitorToBooth_UnknownBoothOrExhibitor(t *testing.T) {
	svc, _ := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10},
	}, "ex1")
	ctx := context.Background()

	_, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B99", "ex1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booth not found")

	_, err = svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhibitor not found")
}

func TestRenameBooth_CaseInsensitiveCollisionRejected(t *testing.T) {
	svc, _ := newFloorplanFixture(t, []domain.Booth{
		{ID: "A1", W: 10, H: 10},
		{ID: "B2", X: 20, W: 10, H: 10},
	})
	ctx := context.Background()

	err := svc.RenameBooth(ctx, testEventID, "B2", "a1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")

	// 拒绝发生在任何写入之前，列表保持原样
	booths, derr := svc.Design(ctx, testEventID)
	require.NoError(t, derr)
	require.Len(t, booths, 2)
	assert.Equal(t, "A1", booths[0].ID)
	assert.Equal(t, "B2", booths[1].ID)
}

func TestRenameBooth_UpdatesExhibitorBackReference(t *testing.T) {
	svc, store := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10},
	}, "ex1")
	ctx := context.Background()

	_, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)

	require.NoError(t, svc.RenameBooth(ctx, testEventID, "B01", "C07"))

	booths, err := svc.Design(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, "C07", booths[0].ID)
	assert.Equal(t, "ex1", booths[0].ExID)
	assert.Equal(t, "C07", exhibitorBoothID(t, store, "ex1"))
}

func TestRenameBooth_SameIDDifferentCaseAllowed(t *testing.T) {
	svc, _ := newFloorplanFixture(t, []domain.Booth{
		{ID: "a1", W: 10, H: 10},
	})
	ctx := context.Background()

	// 自身大小写调整不是冲突
	require.NoError(t, svc.RenameBooth(ctx, testEventID, "a1", "A1"))
	booths, err := svc.Design(ctx, testEventID)
	require.NoError(t, err)
	assert.Equal(t, "A1", booths[0].ID)
}

func TestPublishFloorplan_RendersDeterministicSVG(t *testing.T) {
	svc, store := newFloorplanFixture(t, []domain.Booth{
		{ID: "B02", X: 40, Y: 0, W: 30, H: 20},
		{ID: "B01", X: 0, Y: 0, W: 30, H: 20},
	}, "ex1")
	ctx := context.Background()

	_, err := svc.AssignExhibitorToBooth(ctx, testEventID, "B01", "ex1")
	require.NoError(t, err)

	svg, err := svc.PublishFloorplan(ctx, testEventID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, ">B01</text>")
	assert.Contains(t, svg, ">B02</text>")
	// 展位号排序输出，与会话中顺序无关
	assert.Less(t, strings.Index(svg, "B01"), strings.Index(svg, "B02"))

	doc, err := store.Get(ctx, configCollection(testEventID), "floorplan_published")
	require.NoError(t, err)
	assert.Equal(t, svg, doc.Fields["svg"])
}

func TestPublishFloorplan_RejectsDoubleAssignment(t *testing.T) {
	// 会话里人为构造同一参展商占两个展位的非法状态
	svc, _ := newFloorplanFixture(t, []domain.Booth{
		{ID: "B01", W: 10, H: 10, ExID: "ex1"},
		{ID: "B02", X: 20, W: 10, H: 10, ExID: "ex1"},
	}, "ex1")

	_, err := svc.PublishFloorplan(context.Background(), testEventID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple booths")
}
