package main

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

const (
	cueSampleRate = beep.SampleRate(44100)
	cueFrequency  = 1760.0
	cueVolume     = 0.3
	cueOn         = 150 * time.Millisecond
	cueOff        = 100 * time.Millisecond
)

// SpeakerIndicator plays short tone bursts in place of the device LED.
type SpeakerIndicator struct {
	initOnce sync.Once
	initErr  error
}

func NewSpeakerIndicator() *SpeakerIndicator {
	return &SpeakerIndicator{}
}

// Flash queues times bursts and returns without waiting for playback.
func (si *SpeakerIndicator) Flash(times int) error {
	if times <= 0 {
		return nil
	}

	si.initOnce.Do(func() {
		si.initErr = speaker.Init(cueSampleRate, cueSampleRate.N(time.Second/10))
	})
	if si.initErr != nil {
		return fmt.Errorf("failed to initialise speaker: %w", si.initErr)
	}

	speaker.Play(cueSequence(times))
	return nil
}

// cueSequence alternates tone and silence, ending on silence.
func cueSequence(times int) beep.Streamer {
	parts := make([]beep.Streamer, 0, times*2)
	for i := 0; i < times; i++ {
		parts = append(parts,
			beep.Take(cueSampleRate.N(cueOn), tone(cueSampleRate, cueFrequency)),
			beep.Silence(cueSampleRate.N(cueOff)),
		)
	}
	return beep.Seq(parts...)
}

func tone(sr beep.SampleRate, freq float64) beep.Streamer {
	step := freq / float64(sr)
	var phase float64
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			v := cueVolume * math.Sin(2*math.Pi*phase)
			samples[i][0] = v
			samples[i][1] = v
			phase += step
			if phase >= 1 {
				phase--
			}
		}
		return len(samples), true
	})
}
