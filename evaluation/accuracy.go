package evaluation

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/bbox-eval/common"
)

// MatchPolicy selects which result identifiers are scored against the ground truth.
type MatchPolicy string

const (
	// PolicyIntersection scores every identifier present in both maps.
	PolicyIntersection MatchPolicy = "intersection"
	// PolicyLegacyTruncate sorts the result identifiers, keeps the first
	// min(|ground truth|, |results|) of them and scores those also present in the ground
	// truth. Extra entries of the larger map are ignored, and so may valid matches be.
	PolicyLegacyTruncate MatchPolicy = "legacy-truncate"
)

// ParseMatchPolicy converts a policy name into a MatchPolicy. The empty string maps to
// PolicyIntersection.
func ParseMatchPolicy(name string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PolicyIntersection:
		return PolicyIntersection, nil
	case PolicyLegacyTruncate:
		return PolicyLegacyTruncate, nil
	default:
		return "", errors.Wrapf(ErrUnknownPolicy, "%q", name)
	}
}

// Config defines parameters for an evaluation run.
type Config struct {
	Policy     MatchPolicy // Identifier selection policy. Defaults to PolicyIntersection.
	NumWorkers int         // Number of goroutines scoring pairs. <= 1 scores sequentially.
	Logger     *zap.Logger // Optional. Defaults to a no-op logger.
}

// Score is the IoU of one matched identifier.
type Score struct {
	ID  string  `yaml:"id"`
	IoU float64 `yaml:"iou"`
}

// Report is the outcome of an evaluation run.
type Report struct {
	// Policy used to select identifiers.
	Policy MatchPolicy `yaml:"policy"`
	// Accuracy is the arithmetic mean of Scores.
	Accuracy float64 `yaml:"accuracy"`
	// Scores holds one entry per matched identifier, sorted by identifier.
	Scores []Score `yaml:"scores"`
	// Unmatched lists the considered result identifiers missing from the ground truth.
	Unmatched []string `yaml:"unmatched,omitempty"`
	// Degenerate counts intersecting pairs whose union was empty (scored as 0).
	Degenerate int `yaml:"degenerate"`
}

// EvaluateAccuracy returns the mean IoU between ground truth and results using the
// intersection policy.
//
// Arguments:
//   - groundTruth: Reference boxes keyed by identifier.
//   - results: Predicted boxes keyed by identifier.
//
// Returns:
//   - The mean IoU in [0, 1].
//   - ErrEmptyEvaluation when no identifier pair matched.
func EvaluateAccuracy(groundTruth, results *common.AnnotationMap) (float64, error) {
	report, err := Evaluate(groundTruth, results, nil)
	if err != nil {
		return 0, err
	}
	return report.Accuracy, nil
}

// Evaluate scores the selected identifier pairs and aggregates them into a Report.
//
// Arguments:
//   - groundTruth: Reference boxes keyed by identifier.
//   - results: Predicted boxes keyed by identifier.
//   - config: Run configuration. A nil config uses the defaults.
//
// Returns:
//   - The Report of the run.
//   - ErrEmptyEvaluation when no identifier pair matched, ErrUnknownPolicy for an
//     invalid policy.
func Evaluate(groundTruth, results *common.AnnotationMap, config *Config) (*Report, error) {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyIntersection
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	candidates, err := selectCandidates(groundTruth, results, cfg.Policy)
	if err != nil {
		return nil, err
	}

	report := &Report{Policy: cfg.Policy}
	matched := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if groundTruth.Contains(id) {
			matched = append(matched, id)
		} else {
			report.Unmatched = append(report.Unmatched, id)
		}
	}

	cfg.Logger.Debug("selected identifiers",
		zap.String("policy", string(cfg.Policy)),
		zap.Int("ground_truth", groundTruth.Len()),
		zap.Int("results", results.Len()),
		zap.Int("considered", len(candidates)),
		zap.Int("matched", len(matched)),
	)

	if len(matched) == 0 {
		return nil, errors.Wrapf(ErrEmptyEvaluation, "%d of %d result identifiers considered",
			len(candidates), results.Len())
	}

	scores, degenerate := scorePairs(groundTruth, results, matched, cfg.NumWorkers)

	var sum float64
	report.Scores = make([]Score, len(matched))
	for i, id := range matched {
		report.Scores[i] = Score{ID: id, IoU: scores[i]}
		sum += scores[i]
		if degenerate[i] {
			report.Degenerate++
			cfg.Logger.Debug("degenerate pair scored as zero", zap.String("id", id))
		}
	}
	report.Accuracy = sum / float64(len(matched))

	return report, nil
}

// selectCandidates returns the sorted result identifiers the policy considers.
func selectCandidates(groundTruth, results *common.AnnotationMap, policy MatchPolicy) ([]string, error) {
	ids := results.IDs()
	switch policy {
	case PolicyIntersection:
		return ids, nil
	case PolicyLegacyTruncate:
		count := min(groundTruth.Len(), len(ids))
		return ids[:count], nil
	default:
		return nil, errors.Wrapf(ErrUnknownPolicy, "%q", policy)
	}
}

// scorePairs computes the IoU of every identifier in ids. Results are stored by index so
// the output does not depend on the number of workers.
func scorePairs(groundTruth, results *common.AnnotationMap, ids []string, numWorkers int) ([]float64, []bool) {
	scores := make([]float64, len(ids))
	degenerate := make([]bool, len(ids))

	score := func(i int) {
		gt, _ := groundTruth.Lookup(ids[i])
		res, _ := results.Lookup(ids[i])
		scores[i], degenerate[i] = computeIoU(gt, res)
	}

	if numWorkers <= 1 || len(ids) < 2 {
		for i := range ids {
			score(i)
		}
		return scores, degenerate
	}

	// Worker pool over pair indices.
	jobs := make(chan int, len(ids))
	var wg sync.WaitGroup
	for w := 0; w < min(numWorkers, len(ids)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				score(i)
			}
		}()
	}
	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return scores, degenerate
}
