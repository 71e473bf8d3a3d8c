package bps

// Option configures Apply. The functional-options shape mirrors how
// original_source's bps_apply threads its trailing accept_wrong_input
// bool, but as an opt-in rather than a fixed positional parameter.
type Option func(*applyOptions)

type applyOptions struct {
	acceptWrongInput bool
}

// WithAcceptWrongInput makes Apply proceed even when source's CRC-32
// doesn't match the patch's declared source checksum, instead of failing
// with NotThis. The reconstructed output is still returned and still
// checked against the patch's declared target/patch CRCs.
func WithAcceptWrongInput() Option {
	return func(o *applyOptions) { o.acceptWrongInput = true }
}
