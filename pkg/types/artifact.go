package types

import "mdpress/internal/errors"

// DefaultArtifactName is used when the converter suggests no usable filename.
const DefaultArtifactName = "report.pdf"

// Artifact is the binary result returned by the converter.
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Failure describes a terminal conversion failure.
type Failure struct {
	Kind   errors.ErrorKind
	Detail string
}

// TransferResult is either a successful Artifact or a Failure, never both.
type TransferResult struct {
	Artifact *Artifact
	Failure  *Failure
}

// OK reports whether the result carries an artifact.
func (r TransferResult) OK() bool {
	return r.Artifact != nil
}

// ResultOf folds a conversion's return values into a TransferResult.
func ResultOf(a *Artifact, err error) TransferResult {
	if err == nil {
		return TransferResult{Artifact: a}
	}
	f := &Failure{Kind: errors.KindOf(err), Detail: err.Error()}
	var te *errors.TransferError
	if errors.As(err, &te) && te.Detail() != "" {
		f.Detail = te.Detail()
	}
	return TransferResult{Failure: f}
}
