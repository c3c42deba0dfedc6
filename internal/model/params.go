// Package model provides access to the Wan 2.1 image-to-video runtime.
// The runtime itself lives in a co-located inference sidecar; this package
// holds the generation parameter tables, the sidecar client, and the
// process-wide provider that loads the model once.
package model

// DefaultCheckpointDir is used when MODEL_PATH is unset.
const DefaultCheckpointDir = "/workspace/Wan2.1/models/Wan2.1-I2V-14B-720P"

// DefaultSampleFPS is the fallback frame rate when the runtime config
// does not report one.
const DefaultSampleFPS = 16

// defaultNegativePrompt is the i2v-14B config's sample_neg_prompt, used
// when the job carries no negative prompt and the sidecar reports none.
const defaultNegativePrompt = "色调艳丽，过曝，静态，细节模糊不清，字幕，风格，作品，画作，画面，静止，整体发灰，最差质量，低质量，JPEG压缩残留，丑陋的，残缺的，多余的手指，画得不好的手部，画得不好的脸部，畸形的，毁容的，形态畸形的肢体，手指融合，静止不动的画面，杂乱的背景，三条腿，背景人很多，倒着走"

// maxAreaConfigs mirrors the model library's MAX_AREA_CONFIGS table,
// keyed by size string.
var maxAreaConfigs = map[string]int{
	"720*1280": 720 * 1280,
	"1280*720": 1280 * 720,
	"480*832":  480 * 832,
	"832*480":  832 * 480,
}

// Fixed generation settings. Every job uses these; only the area bound and
// shift vary with the requested resolution.
const (
	// FrameNum follows the model's 4n+1 temporal compression convention.
	FrameNum      = 81
	SampleSolver  = "unipc"
	SamplingSteps = 40
	GuideScale    = 5.0
	OffloadModel  = true
)

// GenerationParams are the per-resolution knobs of a generate call.
type GenerationParams struct {
	SizeKey string
	MaxArea int
	Shift   float64
}

// ParamsForResolution maps a resolution string to its generation
// parameters. The second return value is false for unsupported values.
func ParamsForResolution(resolution string) (GenerationParams, bool) {
	switch resolution {
	case "720p":
		return GenerationParams{
			SizeKey: "1280*720",
			MaxArea: maxAreaConfigs["1280*720"],
			Shift:   5.0,
		}, true
	case "480p":
		return GenerationParams{
			SizeKey: "832*480",
			MaxArea: maxAreaConfigs["832*480"],
			Shift:   3.0,
		}, true
	default:
		return GenerationParams{}, false
	}
}
