package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	visionapi "google.golang.org/api/vision/v1"

	"skatespot-service/internal/config"
	"skatespot-service/internal/evaluator"
	"skatespot-service/internal/vision"
)

func evaluateCommand() *cobra.Command {
	cfg := config.EvaluationConfig{
		ConfidenceThreshold: evaluator.DefaultConfidenceThreshold,
		DaylightOverride:    true,
	}

	cmd := &cobra.Command{
		Use:   "evaluate <vision-response.json>",
		Short: "Evaluate a saved Cloud Vision annotate response offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if t := cfg.ConfidenceThreshold; math.IsNaN(t) || t < 0 || t > 1 {
				return fmt.Errorf("threshold must be within [0,1], got %v", cfg.ConfidenceThreshold)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return evaluateResponses(data, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&cfg.ConfidenceThreshold, "threshold", cfg.ConfidenceThreshold, "Minimum confidence before a rating is issued")
	cmd.Flags().StringVar(&cfg.RubricFile, "rubric", "", "YAML rubric override")
	cmd.Flags().BoolVar(&cfg.DaylightOverride, "daylight-override", cfg.DaylightOverride, "Treat confident daylight labels as good night visibility")
	return cmd
}

// evaluateResponses accepts either a single AnnotateImageResponse or a batch response
// and writes one document per image: the flat rating, or {"pending":true,"reason":...}
// when the evaluation is deferred.
func evaluateResponses(data []byte, cfg config.EvaluationConfig, w io.Writer) error {
	responses, err := parseAnnotateResponses(data)
	if err != nil {
		return err
	}
	eval, err := buildEvaluator(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	for _, resp := range responses {
		if resp.Error != nil && resp.Error.Message != "" {
			return fmt.Errorf("%w: %s", vision.ErrProvider, resp.Error.Message)
		}
		outcome := eval.EvaluateOrDefer(vision.FromAnnotateResponse(resp), cfg.ConfidenceThreshold)
		var doc any = outcome.Rating
		if outcome.IsDeferred() {
			doc = outcome.Deferred
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return nil
}

func parseAnnotateResponses(data []byte) ([]*visionapi.AnnotateImageResponse, error) {
	var batch visionapi.BatchAnnotateImagesResponse
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if len(batch.Responses) > 0 {
		return batch.Responses, nil
	}

	var single visionapi.AnnotateImageResponse
	if err := json.Unmarshal(data, &single); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if isEmptyResponse(&single) {
		return nil, errors.New("no annotate responses found")
	}
	return []*visionapi.AnnotateImageResponse{&single}, nil
}

func isEmptyResponse(r *visionapi.AnnotateImageResponse) bool {
	return len(r.LabelAnnotations) == 0 &&
		len(r.LocalizedObjectAnnotations) == 0 &&
		len(r.TextAnnotations) == 0 &&
		r.ImagePropertiesAnnotation == nil &&
		r.SafeSearchAnnotation == nil &&
		r.Error == nil
}
