package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-grain/grain"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadAppliesParamsAndAutomation(t *testing.T) {
	path := writePreset(t, `{
  "delay_time": 0.75,
  "grain_size": 120,
  "feedback": 85,
  "chaos": 30,
  "grain_voices": 16,
  "tempo_sync": true,
  "host_bpm": 96,
  "lofi": 20,
  "pitch_range": 60,
  "limiter": true,
  "input_wav_path": "in.wav",
  "automation": [
    {"time": 2.0, "param": "freeze", "value": 0},
    {"time": 1.0, "param": "freeze", "value": 1}
  ]
}`)

	pr, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := pr.Params
	if p.DelayTime != 0.75 || p.GrainSizeMs != 120 || p.Feedback != 85 || p.Chaos != 30 {
		t.Fatalf("float fields mismatch: %+v", p)
	}
	if p.PitchRange != 60 {
		t.Fatalf("pitch range: got=%f want=60", p.PitchRange)
	}
	if p.GrainVoices != 16 || !p.TempoSync || p.HostBPM != 96 || !p.LimiterEnabled {
		t.Fatalf("control fields mismatch: %+v", p)
	}
	if p.Mix != grain.NewDefaultParams().Mix {
		t.Fatalf("unset field should keep its default: mix=%f", p.Mix)
	}
	want := filepath.Join(filepath.Dir(path), "in.wav")
	if pr.InputWAVPath != want {
		t.Fatalf("input path mismatch: got=%q want=%q", pr.InputWAVPath, want)
	}
	if len(pr.Automation) != 2 || pr.Automation[0].Time != 1 || pr.Automation[1].Time != 2 {
		t.Fatalf("automation not sorted by time: %+v", pr.Automation)
	}
}

func TestLoadJSONReturnsParams(t *testing.T) {
	path := writePreset(t, `{"mix": 100, "freeze": true}`)
	p, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if p.Mix != 100 || !p.Freeze {
		t.Fatalf("params mismatch: %+v", p)
	}
}

func TestLoadRejectsInvalidRanges(t *testing.T) {
	cases := []string{
		`{"delay_time": 5}`,
		`{"grain_size": 2}`,
		`{"feedback": -1}`,
		`{"envelope_shape": 1.5}`,
		`{"grain_voices": 0}`,
		`{"grain_voices": 64}`,
		`{"output_gain": 0}`,
		`{"host_bpm": 500}`,
		`{"pitch_range": 101}`,
	}
	for _, c := range cases {
		if _, err := Load(writePreset(t, c)); err == nil {
			t.Fatalf("expected range error for %s", c)
		}
	}
}

func TestLoadRejectsUnknownAutomationParam(t *testing.T) {
	path := writePreset(t, `{"automation": [{"time": 0.5, "param": "room_size", "value": 1}]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown automation parameter")
	}
	path = writePreset(t, `{"automation": [{"time": -1, "param": "mix", "value": 1}]}`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for negative automation time")
	}
}

func TestApplyFileNilHandling(t *testing.T) {
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected error for nil destination")
	}
	p := grain.NewDefaultParams()
	if err := ApplyFile(p, nil); err != nil {
		t.Fatalf("nil file should be a no-op: %v", err)
	}
	if *p != *grain.NewDefaultParams() {
		t.Fatalf("params changed by nil file")
	}
}

func TestFromParamsReloads(t *testing.T) {
	p := *grain.NewDefaultParams()
	p.DelayTime = 1.25
	p.GrainVoices = 5
	p.Chaos = 70
	p.TempoSync = true
	p.LimiterEnabled = true

	b, err := json.Marshal(FromParams(p))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := LoadJSON(writePreset(t, string(b)))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if *got != p {
		t.Fatalf("reloaded params differ:\ngot=%+v\nwant=%+v", *got, p)
	}
}
