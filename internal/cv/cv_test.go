package cv

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
)

func TestBridgeSentinelUsesBaseValue(t *testing.T) {
	store := params.NewStore()
	store.Set(params.Gravity, 4.5)
	b := NewBridge()

	if got := b.Resolve(ModGravity, store); got != 4.5 {
		t.Errorf("disconnected channel resolved to %f, want base 4.5", got)
	}

	b.Publish(ModGravity, []float32{1, 0, 0})
	if got := b.Resolve(ModGravity, store); got != params.SpecOf(params.Gravity).Max {
		t.Errorf("full-scale modulation resolved to %f", got)
	}

	b.Publish(ModGravity, nil)
	if got := b.Resolve(ModGravity, store); got != 4.5 {
		t.Errorf("after disconnect resolved to %f", got)
	}
}

func TestBridgeReadsFirstSample(t *testing.T) {
	b := NewBridge()
	b.Publish(ModWind, []float32{0.25, 0.75})
	v, ok := b.Raw(ModWind)
	if !ok || v != 0.25 {
		t.Errorf("Raw = %f, %v; want first sample", v, ok)
	}
	if _, ok := b.Raw(ModVortexSpin); ok {
		t.Error("untouched channel reports connected")
	}
}

func TestMedianAggregation(t *testing.T) {
	out := &Outputs{}
	agg := NewAggregator(AggregatorConfig{Width: 10, Height: 10, MaxVelocity: 5}, out)

	// normalized x positions 0.2, 0.5, 0.9: the median is 0.5, the mean 0.533
	agg.Update([]Sample{
		{Kind: kind.Ball, Position: mgl64.Vec2{2, 1}},
		{Kind: kind.Ball, Position: mgl64.Vec2{5, 1}},
		{Kind: kind.Ball, Position: mgl64.Vec2{9, 1}},
	})

	if got := out.Of(kind.Ball, PosX); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("ball posX = %f, want 0.5", got)
	}
}

func TestAggregatorNormalizesAndClamps(t *testing.T) {
	out := &Outputs{}
	agg := NewAggregator(AggregatorConfig{Width: 10, Height: 20, MaxVelocity: 4}, out)

	agg.Update([]Sample{
		{Kind: kind.Square, Position: mgl64.Vec2{15, 10}, Velocity: mgl64.Vec2{2, -40}},
	})

	tests := []struct {
		field Field
		want  float64
	}{
		{PosX, 1},
		{PosY, 0.5},
		{VelX, 0.5},
		{VelY, -1},
	}
	for _, tt := range tests {
		if got := out.Of(kind.Square, tt.field); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("square %v = %f, want %f", tt.field, got, tt.want)
		}
	}
}

func TestAggregatorHoldsAbsentKinds(t *testing.T) {
	out := &Outputs{}
	agg := NewAggregator(AggregatorConfig{Width: 10, Height: 10, MaxVelocity: 1}, out)

	agg.Update([]Sample{{Kind: kind.Triangle, Position: mgl64.Vec2{3, 3}}})
	agg.Update(nil)

	if got := out.Of(kind.Triangle, PosX); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("triangle posX = %f, want held 0.3", got)
	}
}

func TestAggregatorSmoothing(t *testing.T) {
	out := &Outputs{}
	agg := NewAggregator(AggregatorConfig{Width: 1, Height: 1, MaxVelocity: 1, Smoothing: 0.5}, out)

	agg.Update([]Sample{{Kind: kind.Ball, Position: mgl64.Vec2{0, 0}}})
	agg.Update([]Sample{{Kind: kind.Ball, Position: mgl64.Vec2{1, 0}}})

	if got := out.Of(kind.Ball, PosX); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("smoothed posX = %f, want 0.5", got)
	}
}

func TestMedianEven(t *testing.T) {
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("Median = %f, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %f", got)
	}
}

func TestOutputName(t *testing.T) {
	if got := OutputName(OutputIndex(kind.Triangle, VelY)); got != "triangle.velY" {
		t.Errorf("OutputName = %q", got)
	}
}
