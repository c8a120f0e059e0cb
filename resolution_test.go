package postfx

import "testing"

func TestResolutionAutoSize(t *testing.T) {
	tests := []struct {
		name         string
		baseW, baseH int
		prefW, prefH int
		wantW, wantH int
	}{
		{"auto height", 1920, 1080, 480, AutoSize, 480, 270},
		{"auto width", 1920, 1080, AutoSize, 270, 480, 270},
		{"both explicit", 1920, 1080, 100, 100, 100, 100},
		{"both auto", 1920, 1080, AutoSize, AutoSize, 1920, 1080},
		{"hd auto width", 1280, 720, AutoSize, 360, 640, 360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolution()
			r.SetBaseSize(tt.baseW, tt.baseH)
			r.SetPreferredSize(tt.prefW, tt.prefH)
			w, h := r.EffectiveSize()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("EffectiveSize() = (%d, %d), want (%d, %d)", w, h, tt.wantW, tt.wantH)
			}

			// Pinning the derived size must reproduce it.
			lw, lh := r.Size()
			r.SetPreferredSize(lw, lh)
			if w2, h2 := r.EffectiveSize(); w2 != w || h2 != h {
				t.Errorf("re-derived size = (%d, %d), want (%d, %d)", w2, h2, w, h)
			}
		})
	}
}

func TestResolutionPixelRatio(t *testing.T) {
	tests := []struct {
		ratio        float64
		wantW, wantH int
	}{
		{1, 960, 540},
		{2, 1920, 1080},
		{1.5, 1440, 810},
		{0.5, 480, 270},
	}
	for _, tt := range tests {
		r := NewResolution()
		r.SetBaseSize(960, 540)
		r.SetPixelRatio(tt.ratio)
		if w, h := r.EffectiveSize(); w != tt.wantW || h != tt.wantH {
			t.Errorf("ratio %v: EffectiveSize() = (%d, %d), want (%d, %d)", tt.ratio, w, h, tt.wantW, tt.wantH)
		}
		if w, h := r.Size(); w != 960 || h != 540 {
			t.Errorf("ratio %v: Size() = (%d, %d), want logical (960, 540)", tt.ratio, w, h)
		}
	}
}

func TestResolutionScale(t *testing.T) {
	r := NewResolution()
	r.SetBaseSize(1920, 1080)
	r.SetPreferredSize(100, AutoSize)
	r.SetScale(0.5)

	if w, h := r.PreferredSize(); w != AutoSize || h != AutoSize {
		t.Errorf("PreferredSize() after SetScale = (%d, %d), want AutoSize", w, h)
	}
	if w, h := r.EffectiveSize(); w != 960 || h != 540 {
		t.Errorf("EffectiveSize() = (%d, %d), want (960, 540)", w, h)
	}

	// An explicit dimension takes over without touching the scale.
	r.SetPreferredWidth(480)
	if r.Scale() != 0.5 {
		t.Errorf("Scale() = %v, want 0.5", r.Scale())
	}
	if w, h := r.EffectiveSize(); w != 480 || h != 270 {
		t.Errorf("EffectiveSize() = (%d, %d), want (480, 270)", w, h)
	}
}

func TestResolutionOnChange(t *testing.T) {
	r := NewResolution()
	calls := 0
	r.OnChange(func(*Resolution) { calls++ })

	r.SetBaseSize(10, 10)
	r.SetBaseSize(10, 10)
	r.SetPixelRatio(1)
	if calls != 1 {
		t.Errorf("OnChange calls = %d, want 1", calls)
	}
}

func TestViewportOffset(t *testing.T) {
	v := NewViewport()
	v.SetBaseSize(200, 100)
	v.SetOffset(50, 25)
	v.SetScale(0.5)
	v.SetPixelRatio(2)

	if x, y := v.Offset(); x != 25 || y != 13 {
		t.Errorf("Offset() = (%d, %d), want (25, 13)", x, y)
	}
	if x, y := v.EffectiveOffset(); x != 50 || y != 26 {
		t.Errorf("EffectiveOffset() = (%d, %d), want (50, 26)", x, y)
	}
	if w, h := v.EffectiveSize(); w != 200 || h != 100 {
		t.Errorf("EffectiveSize() = (%d, %d), want (200, 100)", w, h)
	}
}
