package capture

import (
	"errors"
	"testing"

	"github.com/voceware/livetranslate/pkg/core/plan"
)

func TestClassifyInitError(t *testing.T) {
	cases := []struct {
		name string
		src  plan.Source
		err  error
		want error
	}{
		{
			name: "microphone permission denied",
			src:  plan.Source{Kind: plan.SourceMicrophone},
			err:  errors.New("MA_ACCESS_DENIED: Access Denied"),
			want: ErrPermissionDenied,
		},
		{
			name: "system audio permission denied",
			src:  plan.Source{Kind: plan.SourceSystemAudio},
			err:  errors.New("loopback requires screen recording permission"),
			want: ErrPermissionDenied,
		},
		{
			name: "system audio grant without a usable track",
			src:  plan.Source{Kind: plan.SourceSystemAudio},
			err:  errors.New("failed to initialize loopback device"),
			want: ErrNoAudioTrack,
		},
		{
			name: "generic microphone failure",
			src:  plan.Source{Kind: plan.SourceMicrophone},
			err:  errors.New("device busy"),
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyInitError(tc.src, tc.err)
			if got == nil {
				t.Fatal("classifyInitError returned nil")
			}
			if tc.want != nil {
				if !errors.Is(got, tc.want) {
					t.Fatalf("classifyInitError = %v, want %v", got, tc.want)
				}
				return
			}
			if errors.Is(got, ErrPermissionDenied) || errors.Is(got, ErrNoAudioTrack) {
				t.Fatalf("classifyInitError = %v, want no sentinel", got)
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("classifyInitError = %v, want it to wrap %v", got, tc.err)
			}
		})
	}
}
