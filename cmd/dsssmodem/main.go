// Command dsssmodem runs one transmit-to-equalize loopback pass over
// the DSP packages: build a pilot plus random data payload, modulate
// and spread it to a passband waveform, optionally write that
// waveform to a WAV file, locate the pilot with the synchronizer, and
// train a decision-feedback equalizer against the recovered symbols.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	"github.com/cwsl/dsssmodem"
	"github.com/cwsl/dsssmodem/dfe"
	"github.com/cwsl/dsssmodem/firfilter"
	"github.com/cwsl/dsssmodem/lfsr"
	"github.com/cwsl/dsssmodem/modulator"
	"github.com/cwsl/dsssmodem/pilotsync"
	"github.com/cwsl/dsssmodem/wavfile"
)

func main() {
	configPath := flag.String("config", "", "Path to a config.yaml (defaults to pinned production constants)")
	debug := flag.Bool("debug", false, "Enable trace-level logging")
	dataBits := flag.Int("bits", 64, "Number of random data bits to transmit")
	seed := flag.Int64("seed", 1, "PRNG seed for the random data payload")
	wavOut := flag.String("wav-out", "", "If set, write the transmitted passband waveform to this WAV file (.gz for gzip)")
	flag.Parse()

	if err := dsssmodem.Initialize(); err != nil {
		log.Fatalf("initialize: %v", err)
	}
	defer dsssmodem.Terminate()

	if *debug {
		dsssmodem.SetLogLevel(dsssmodem.LogTrace)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	bits := randomBits(rng, *dataBits)

	pilotChips, err := pilotCodeChips(cfg)
	if err != nil {
		log.Fatalf("build pilot code: %v", err)
	}

	dataSymbolSignal, err := transmit(cfg, bits, pilotChips)
	if err != nil {
		log.Fatalf("transmit: %v", err)
	}

	if *wavOut != "" {
		if err := writeWav(*wavOut, cfg, dataSymbolSignal); err != nil {
			log.Fatalf("write wav: %v", err)
		}
		fmt.Printf("wrote %d samples to %s\n", len(dataSymbolSignal), *wavOut)
	}

	offset, syncGroupDelay, err := locatePilot(cfg, pilotChips, dataSymbolSignal)
	if err != nil {
		log.Fatalf("locate pilot: %v", err)
	}
	fmt.Printf("pilot located at sample offset %d\n", offset)

	// The synchronizer's own narrowband/lowpass filters shift the
	// detected peak forward by their combined group delay; compensate
	// before deriving the data-symbol start.
	dataStart := offset - syncGroupDelay + len(pilotChips)*cfg.Channel.ChipSamples
	rxSymbols, err := receiveSymbols(cfg, dataSymbolSignal, dataStart, len(bits))
	if err != nil {
		log.Fatalf("receive symbols: %v", err)
	}

	decisions, err := equalize(cfg, bits, rxSymbols)
	if err != nil {
		log.Fatalf("equalize: %v", err)
	}

	hits := 0
	for i, b := range bits {
		want := symbolFromBit(b)
		if i < len(decisions) && decisions[i] == want {
			hits++
		}
	}
	fmt.Printf("decision-directed loopback: %d/%d symbols correct\n", hits, len(bits))
}

func loadConfig(path string) (*dsssmodem.Config, error) {
	if path == "" {
		return dsssmodem.DefaultConfig(), nil
	}
	return dsssmodem.LoadConfig(path)
}

func randomBits(rng *rand.Rand, n int) []int {
	bits := make([]int, n)
	for i := range bits {
		bits[i] = rng.Intn(2)
	}
	return bits
}

func symbolFromBit(bit int) complex128 {
	if bit == 0 {
		return 1
	}
	return -1
}

// pilotCodeChips materializes the configured Gold-code pilot sequence
// as a fresh ±1 chip slice.
func pilotCodeChips(cfg *dsssmodem.Config) ([]int, error) {
	pc := cfg.PilotCode

	a, err := lfsr.New(pc.Degree, pc.PolyA, pc.InitA)
	if err != nil {
		return nil, err
	}
	b, err := lfsr.New(pc.Degree, pc.PolyB, pc.InitB)
	if err != nil {
		return nil, err
	}
	gold := lfsr.NewGoldCode(a, b)

	return gold.Chips(pc.PilotChips), nil
}

// transmit builds a passband waveform: the pilot modulated at symbol
// 0 and spread by the pilot Gold code, followed by each data bit
// modulated to a BPSK symbol and spread by the configured LFSR data
// code, then run through a wideband bandpass filter shaping the
// transmit spectrum.
func transmit(cfg *dsssmodem.Config, bits []int, pilotChips []int) ([]float64, error) {
	ch := cfg.Channel

	pilotSamples := len(pilotChips) * ch.ChipSamples
	i, q, err := modulator.ModulateSymbol(0, ch.ConstellationM, ch.SampleRateHz, ch.CarrierHz, 1, pilotSamples)
	if err != nil {
		return nil, err
	}
	pilotWave := addIQ(i, q)
	pilotWave = modulator.SpreadSignal(&fixedChips{chips: pilotChips}, ch.ChipSamples, pilotWave)

	dc := cfg.DataCode
	dataGen, err := lfsr.New(dc.Degree, dc.Poly, dc.Init)
	if err != nil {
		return nil, err
	}

	symbolSamples := ch.ChipsPerSymbol * ch.ChipSamples
	full := append([]float64(nil), pilotWave...)

	for _, bit := range bits {
		symbol := bit % ch.ConstellationM

		si, sq, err := modulator.ModulateSymbol(symbol, ch.ConstellationM, ch.SampleRateHz, ch.CarrierHz, 1, symbolSamples)
		if err != nil {
			return nil, err
		}
		wave := addIQ(si, sq)
		wave = modulator.SpreadSignal(dataGen, ch.ChipSamples, wave)
		full = append(full, wave...)
	}

	wideband, err := firfilter.DesignBandpass(
		ch.CarrierHz-4000, ch.CarrierHz-3000, ch.CarrierHz+3000, ch.CarrierHz+4000,
		cfg.Filter.PassbandRippleDB, cfg.Filter.StopbandAttenuationDB, ch.SampleRateHz,
	)
	if err != nil {
		return nil, err
	}

	return wideband.Apply(full), nil
}

func addIQ(i, q []float64) []float64 {
	out := make([]float64, len(i))
	for k := range i {
		out[k] = i[k] + q[k]
	}
	return out
}

type fixedChips struct {
	chips []int
	pos   int
}

func (f *fixedChips) NextChip() int {
	c := f.chips[f.pos%len(f.chips)]
	f.pos++
	return c
}

// locatePilot returns the sample offset in received where the pilot's
// correlation energy peaks, and the combined group delay of the
// narrowband/lowpass filters the synchronizer ran the correlation
// through, so a caller can compensate for that delay when deriving the
// data-symbol start.
func locatePilot(cfg *dsssmodem.Config, pilotChips []int, received []float64) (offset, groupDelay int, err error) {
	ch := cfg.Channel

	pilotSamples := len(pilotChips) * ch.ChipSamples
	pi, pq, err := modulator.ModulateSymbol(0, ch.ConstellationM, ch.SampleRateHz, ch.CarrierHz, 1, pilotSamples)
	if err != nil {
		return 0, 0, err
	}
	pilotWave := addIQ(pi, pq)
	pilotWave = modulator.SpreadSignal(&fixedChips{chips: pilotChips}, ch.ChipSamples, pilotWave)

	narrow, err := firfilter.DesignBandpass(
		ch.CarrierHz-4000, ch.CarrierHz-3000, ch.CarrierHz+3000, ch.CarrierHz+4000,
		cfg.Filter.PassbandRippleDB, cfg.Filter.StopbandAttenuationDB, ch.SampleRateHz,
	)
	if err != nil {
		return 0, 0, err
	}
	low, err := firfilter.DesignLowpass(1000, 2000, cfg.Filter.PassbandRippleDB, cfg.Filter.StopbandAttenuationDB, ch.SampleRateHz)
	if err != nil {
		return 0, 0, err
	}

	offset, err = pilotsync.FindHighestEnergyOffset(pilotWave, received, narrow, low, cfg.Sync.Decimation)
	if err != nil {
		return 0, 0, err
	}

	return offset, narrow.GroupDelay() + low.GroupDelay(), nil
}

// receiveSymbols runs the receive-side chain after the synchronizer
// has located the pilot: despread each symbol window against the data
// code, isolate the carrier band with a narrowband FIR, coherently
// downconvert to baseband I/Q, run the result through a lowpass FIR,
// and integrate each window down to one complex baseband sample per
// symbol.
func receiveSymbols(cfg *dsssmodem.Config, received []float64, dataStart, numSymbols int) ([]complex128, error) {
	ch := cfg.Channel

	dc := cfg.DataCode
	dataGen, err := lfsr.New(dc.Degree, dc.Poly, dc.Init)
	if err != nil {
		return nil, err
	}

	narrow, err := firfilter.DesignBandpass(
		ch.CarrierHz-4000, ch.CarrierHz-3000, ch.CarrierHz+3000, ch.CarrierHz+4000,
		cfg.Filter.PassbandRippleDB, cfg.Filter.StopbandAttenuationDB, ch.SampleRateHz,
	)
	if err != nil {
		return nil, err
	}
	low, err := firfilter.DesignLowpass(1000, 2000, cfg.Filter.PassbandRippleDB, cfg.Filter.StopbandAttenuationDB, ch.SampleRateHz)
	if err != nil {
		return nil, err
	}

	symbolSamples := ch.ChipsPerSymbol * ch.ChipSamples
	symbols := make([]complex128, 0, numSymbols)

	for i := 0; i < numSymbols; i++ {
		start := dataStart + i*symbolSamples
		end := start + symbolSamples
		if start < 0 || end > len(received) {
			break
		}

		despread := modulator.SpreadSignal(dataGen, ch.ChipSamples, received[start:end])
		narrowed := narrow.Apply(despread)

		iComp, qComp, err := modulator.Downconvert(ch.SampleRateHz, ch.CarrierHz, narrowed)
		if err != nil {
			return nil, err
		}
		iLow := low.Apply(iComp)
		qLow := low.Apply(qComp)

		var iSum, qSum float64
		for k := range iLow {
			iSum += iLow[k]
			qSum += qLow[k]
		}
		n := float64(len(iLow))
		symbols = append(symbols, complex(iSum/n, qSum/n))
	}

	return symbols, nil
}

// equalize trains a decision-feedback equalizer against the
// downconverted baseband symbols received produces, using bits to
// supply the known training-sequence values during the training
// window and decision-directed feedback afterward.
func equalize(cfg *dsssmodem.Config, bits []int, received []complex128) ([]complex128, error) {
	eqCfg := cfg.Equalizer

	eq, err := dfe.New(eqCfg.FeedforwardTaps, eqCfg.FeedbackTaps, eqCfg.StepSize, []complex128{1, -1}, eqCfg.TrainingSymbols, eqCfg.Iterations)
	if err != nil {
		return nil, err
	}
	eq.SetEpsilon(eqCfg.Epsilon)

	decisions := make([]complex128, len(received))
	for i, sample := range received {
		haveTraining := i < eqCfg.TrainingSymbols && i < len(bits)

		var training complex128
		if haveTraining {
			training = symbolFromBit(bits[i])
		}

		decision, err := eq.Step(sample, training, haveTraining)
		if err != nil {
			return nil, err
		}
		decisions[i] = decision
	}

	return decisions, nil
}

func writeWav(path string, cfg *dsssmodem.Config, signal []float64) error {
	w, err := wavfile.NewWriter(path, int(cfg.Channel.SampleRateHz), 1, 32, true)
	if err != nil {
		return err
	}

	if _, err := w.WriteChannels([][]float64{signal}); err != nil {
		w.Close()
		return err
	}

	return w.Close()
}
