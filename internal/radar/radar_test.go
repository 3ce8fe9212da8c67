package radar

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/FC2Observ/observ/internal/mapdata"
	"github.com/FC2Observ/observ/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatMap() *mapdata.MapData {
	return &mapdata.MapData{
		Name:       "de_dust2",
		Offset:     mapdata.Vec2{X: 2476, Y: 3239},
		Resolution: 4.4,
		Splits:     []mapdata.Split{},
	}
}

func splitMap() *mapdata.MapData {
	return &mapdata.MapData{
		Name:       "de_nuke",
		Offset:     mapdata.Vec2{X: 0, Y: 0},
		Resolution: 1,
		Splits: []mapdata.Split{
			{Bounds: mapdata.Bounds{Bottom: -1000, Top: -400}, Offset: mapdata.Vec2{X: 10, Y: 50}},
			{Bounds: mapdata.Bounds{Bottom: -500, Top: 0}, Offset: mapdata.Vec2{X: 99, Y: 99}},
		},
	}
}

func TestProject_NoSplits(t *testing.T) {
	md := flatMap()
	pos := At(-1000, 500, 12)

	x, split := Project(pos, AxisX, md)
	assert.InDelta(t, ((-1000+2476)/4.4/1024)*100, x, 1e-9)
	assert.Equal(t, Ground, split)

	y, _ := Project(pos, AxisY, md)
	assert.InDelta(t, ((500+3239)/4.4/1024)*100, y, 1e-9)
}

func TestProject_InsideSplitAddsOffsetOnce(t *testing.T) {
	md := splitMap()
	base := (100.0 / 1 / 1024) * 100

	x, split := Project(At(100, 100, -700), AxisX, md)
	assert.InDelta(t, base+10, x, 1e-9)
	assert.Equal(t, 0, split)

	y, _ := Project(At(100, 100, -700), AxisY, md)
	assert.InDelta(t, base+50, y, 1e-9)
}

func TestProject_OverlapFirstSplitWins(t *testing.T) {
	md := splitMap()

	x, split := Project(At(0, 0, -450), AxisX, md)
	assert.InDelta(t, 10.0, x, 1e-9)
	assert.Equal(t, 0, split)
}

func TestProject_BoundsAreExclusive(t *testing.T) {
	md := &mapdata.MapData{
		Resolution: 1,
		Splits: []mapdata.Split{
			{Bounds: mapdata.Bounds{Bottom: -100, Top: 100}, Offset: mapdata.Vec2{X: 25}},
		},
	}

	onBottom, split := Project(At(0, 0, -100), AxisX, md)
	assert.Equal(t, 0.0, onBottom)
	assert.Equal(t, Ground, split)

	onTop, split := Project(At(0, 0, 100), AxisX, md)
	assert.Equal(t, 0.0, onTop)
	assert.Equal(t, Ground, split)
}

func TestProject_MissingZSkipsSplits(t *testing.T) {
	md := splitMap()

	x, split := Project(AtXY(0, 0), AxisX, md)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, Ground, split)
}

func TestProject_EndToEndNoOffset(t *testing.T) {
	md := &mapdata.MapData{Resolution: 1}
	pos := FromCore(core.Position3D{X: 100, Y: 200, Z: 50})

	x, _ := Project(pos, AxisX, md)
	y, _ := Project(pos, AxisY, md)
	assert.InDelta(t, 9.765625, x, 1e-9)
	assert.InDelta(t, 19.53125, y, 1e-9)
}

func TestMapper_SplitChangeClearsTrail(t *testing.T) {
	pool := NewPool(5)
	m := NewMapper(pool)
	md := splitMap()

	m.Track(At(0, 0, 50), md, 3)
	m.Track(At(1, 1, 50), md, 3)
	require.Len(t, pool.Trail(3), 2)
	assert.Equal(t, Ground, pool.Split(3))

	m.ProjectSlot(At(0, 0, -700), AxisX, md, 3)

	assert.Empty(t, pool.Trail(3))
	assert.Equal(t, 0, pool.Split(3))
}

func TestMapper_SameSplitKeepsTrail(t *testing.T) {
	pool := NewPool(5)
	m := NewMapper(pool)
	md := splitMap()

	m.Track(At(0, 0, -700), md, 1)
	m.Track(At(1, 1, -600), md, 1)
	m.ProjectSlot(At(2, 2, -650), AxisY, md, 1)

	assert.Len(t, pool.Trail(1), 2)
	assert.Equal(t, 0, pool.Split(1))
}

func TestMapper_OutOfRangeSlotSkipsState(t *testing.T) {
	pool := NewPool(5)
	m := NewMapper(pool)
	md := splitMap()

	for _, slot := range []int{-1, MaxSlots, 42} {
		x := m.ProjectSlot(At(0, 0, -700), AxisX, md, slot)
		assert.InDelta(t, 10.0, x, 1e-9)
		m.Track(At(0, 0, -700), md, slot)
	}

	for i := 0; i < MaxSlots; i++ {
		assert.Equal(t, Ground, pool.Split(i))
		assert.Empty(t, pool.Trail(i))
	}
}

func TestMapper_ProjectPoint(t *testing.T) {
	m := NewMapper(NewPool(5))
	md := splitMap()

	p := m.ProjectPoint(At(0, 0, -700), md, 0)
	assert.Equal(t, Point{X: 10, Y: 50, Split: 0}, p)
}

func TestPool_TrailIsBounded(t *testing.T) {
	pool := NewPool(3)
	for i := 0; i < 5; i++ {
		pool.Append(0, Point{X: float64(i)})
	}

	trail := pool.Trail(0)
	require.Len(t, trail, 3)
	assert.Equal(t, 2.0, trail[0].X)
	assert.Equal(t, 4.0, trail[2].X)
}

func TestPool_Reset(t *testing.T) {
	pool := NewPool(3)
	pool.Observe(2, 1)
	pool.Append(2, Point{X: 1})

	pool.Reset()

	assert.Equal(t, Ground, pool.Split(2))
	assert.Empty(t, pool.Trail(2))
}

func TestPool_ObserveReportsClear(t *testing.T) {
	pool := NewPool(3)

	assert.False(t, pool.Observe(0, Ground))
	assert.True(t, pool.Observe(0, 1))
	assert.False(t, pool.Observe(0, 1))
	assert.False(t, pool.Observe(-1, 1))
}

func TestPool_TrailLine(t *testing.T) {
	pool := NewPool(3)

	_, ok := pool.TrailLine(0)
	assert.False(t, ok)

	pool.Append(0, Point{X: 1, Y: 2})
	_, ok = pool.TrailLine(0)
	assert.False(t, ok)

	pool.Append(0, Point{X: 3, Y: 4})
	ls, ok := pool.TrailLine(0)
	require.True(t, ok)

	raw, err := json.Marshal(ls)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[[1,2],[3,4]]}`, string(raw))
}

func TestPool_ConcurrentObserve(t *testing.T) {
	pool := NewPool(10)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pool.Append(i%MaxSlots, Point{X: float64(i)})
			pool.Observe(i%MaxSlots, i%2)
		}(i)
	}
	wg.Wait()

	for i := 0; i < MaxSlots; i++ {
		split := pool.Split(i)
		assert.True(t, split == 0 || split == 1)
	}
}
