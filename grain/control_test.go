package grain

import (
	"sync"
	"testing"
)

func TestParamStoreRoundTripsDefaults(t *testing.T) {
	s := NewParamStore(nil)
	if got, want := s.Snapshot(), *NewDefaultParams(); got != want {
		t.Fatalf("snapshot mismatch:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestParamStoreSetByID(t *testing.T) {
	s := NewParamStore(nil)
	sets := map[string]float32{
		ParamDelayTime:   1.25,
		ParamChaos:       42,
		ParamGrainVoices: 12.4,
		ParamFreeze:      1,
		ParamTempoSync:   0.7,
		ParamLimiter:     0.2,
		ParamLofi:        33,
		ParamPitchRange:  80,
	}
	for id, v := range sets {
		if err := s.Set(id, v); err != nil {
			t.Fatalf("Set(%s): %v", id, err)
		}
	}
	p := s.Snapshot()
	if p.DelayTime != 1.25 || p.Chaos != 42 || p.Lofi != 33 || p.PitchRange != 80 {
		t.Fatalf("float params not stored: %+v", p)
	}
	if p.GrainVoices != 12 {
		t.Fatalf("voices: got=%d want=12", p.GrainVoices)
	}
	if !p.Freeze || !p.TempoSync || p.LimiterEnabled {
		t.Fatalf("toggle thresholds: freeze=%v sync=%v limiter=%v", p.Freeze, p.TempoSync, p.LimiterEnabled)
	}
	s.SetFreeze(false)
	if s.Snapshot().Freeze {
		t.Fatalf("SetFreeze(false) not applied")
	}
}

func TestParamStoreRejectsUnknownID(t *testing.T) {
	s := NewParamStore(nil)
	if err := s.Set("room_size", 1); err == nil {
		t.Fatalf("expected error for unknown parameter")
	}
}

func TestParamStoreConcurrentWriters(t *testing.T) {
	s := NewParamStore(nil)
	e := newTestEngine(t, 48000, 64)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		v := float32(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			v += 0.5
			if v > 100 {
				v = 0
			}
			_ = s.Set(ParamChaos, v)
			_ = s.Set(ParamMix, v)
			_ = s.Set(ParamFreeze, v/100)
		}
	}()
	bl := make([]float32, 64)
	br := make([]float32, 64)
	for i := 0; i < 500; i++ {
		inL, inR := sineBlock(i*64, 64, 220, 48000)
		e.ProcessBlock(inL, inR, bl, br, s.Snapshot())
		assertFinite(t, "left", bl)
	}
	close(stop)
	wg.Wait()
}
