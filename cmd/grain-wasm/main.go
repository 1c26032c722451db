//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-grain/grain"
	"github.com/cwbudde/algo-grain/preset"
)

const maxFrames = 128

var (
	globalEngine *grain.Engine
	globalParams *grain.ParamStore

	// Interleaved stereo, maxFrames each. JS writes input and reads output
	// directly in WASM linear memory.
	inputBuffer  []float32
	outputBuffer []float32
	inL, inR     []float32
	outL, outR   []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmSetParam", js.FuncOf(wasmSetParam))
	js.Global().Set("wasmSetFreeze", js.FuncOf(wasmSetFreeze))
	js.Global().Set("wasmLoadPreset", js.FuncOf(wasmLoadPreset))
	js.Global().Set("wasmReset", js.FuncOf(wasmReset))
	js.Global().Set("wasmGetInputPointer", js.FuncOf(wasmGetInputPointer))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM granular delay module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Float()

	e, err := grain.NewEngine(sampleRate, maxFrames)
	if err != nil {
		println("Engine init failed:", err.Error())
		return nil
	}
	globalEngine = e
	if globalParams == nil {
		globalParams = grain.NewParamStore(nil)
	}

	inputBuffer = make([]float32, maxFrames*2)
	outputBuffer = make([]float32, maxFrames*2)
	inL = make([]float32, maxFrames)
	inR = make([]float32, maxFrames)
	outL = make([]float32, maxFrames)
	outR = make([]float32, maxFrames)

	println("Granular delay initialized at", int(e.SampleRate()), "Hz")
	return nil
}

func wasmSetParam(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalParams == nil {
		return false
	}
	if err := globalParams.Set(args[0].String(), float32(args[1].Float())); err != nil {
		println("setParam:", err.Error())
		return false
	}
	return true
}

func wasmSetFreeze(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalParams == nil {
		return nil
	}
	globalParams.SetFreeze(args[0].Bool())
	return nil
}

func wasmLoadPreset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalParams == nil {
		return false
	}
	var f preset.File
	if err := json.Unmarshal([]byte(args[0].String()), &f); err != nil {
		println("Preset parse failed:", err.Error())
		return false
	}
	p := grain.NewDefaultParams()
	if err := preset.ApplyFile(p, &f); err != nil {
		println("Preset rejected:", err.Error())
		return false
	}
	globalParams.Store(*p)
	return true
}

func wasmReset(this js.Value, args []js.Value) interface{} {
	if globalEngine != nil {
		globalEngine.Reset()
	}
	return nil
}

func wasmGetInputPointer(this js.Value, args []js.Value) interface{} {
	if len(inputBuffer) == 0 {
		return 0
	}
	return js.ValueOf(uintptr(unsafe.Pointer(&inputBuffer[0])))
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalEngine == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > maxFrames {
		numFrames = maxFrames
	}
	if numFrames < 0 {
		numFrames = 0
	}

	for i := 0; i < numFrames; i++ {
		inL[i] = inputBuffer[2*i]
		inR[i] = inputBuffer[2*i+1]
	}
	globalEngine.ProcessBlock(inL[:numFrames], inR[:numFrames], outL[:numFrames], outR[:numFrames], globalParams.Snapshot())
	for i := 0; i < numFrames; i++ {
		outputBuffer[2*i] = outL[i]
		outputBuffer[2*i+1] = outR[i]
	}

	// Return pointer to buffer in WASM linear memory
	return js.ValueOf(uintptr(unsafe.Pointer(&outputBuffer[0])))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
