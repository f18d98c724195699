// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "spectrum/internal/log"
)

const recordBitDepth = 16

type closableFile interface {
	io.WriteSeeker
	Close() error
}

// StartRecording begins writing the analyzed mono channel to a WAV file.
func (e *Engine) StartRecording(filename string) error {
	if e.isRecording.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	sampleRate := int(e.config.Audio.SampleRate)
	e.wavEncoder = wav.NewEncoder(file, sampleRate, recordBitDepth, 1, 1)
	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: recordBitDepth,
		Data:           make([]int, e.config.Audio.FramesPerBuffer),
	}

	e.isRecording.Store(true)
	applog.Infof("Audio: recording to %s", filename)
	return nil
}

// StopRecording finalizes and closes the WAV file. Safe to call when not
// recording.
func (e *Engine) StopRecording() error {
	if !e.isRecording.Load() {
		return nil
	}
	e.isRecording.Store(false)

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}
	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}
	return nil
}

// writeRecording converts the current mono buffer to 16-bit PCM and
// appends it to the encoder. Called from the capture callback.
func (e *Engine) writeRecording() {
	for i, s := range e.monoBuf {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		e.sampleBuf.Data[i] = int(s * 32767)
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(e.monoBuf)]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Audio: error writing to WAV file: %v", err)
	}
}
