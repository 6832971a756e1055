package hmm

import "errors"

var (
	// ErrNotTrained is returned when probabilities or decoding are
	// requested from an estimator or model that was never finalized.
	ErrNotTrained = errors.New("not trained")

	// ErrAlreadyFinalized is returned when a second training or
	// finalization pass is attempted on the same instance.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrCorruptModel is returned when persisted model data is
	// malformed or inconsistent with its declared vocabulary sizes.
	ErrCorruptModel = errors.New("corrupt model")

	// ErrInvalidSequence is returned when an input contains a token or
	// label ID outside the declared vocabulary range.
	ErrInvalidSequence = errors.New("invalid sequence")

	// ErrTrainingIncomplete is returned when a training pass aborts
	// partway; the model is left untrained.
	ErrTrainingIncomplete = errors.New("training incomplete")
)
