package telemetry

import "errors"

// RecordWriter accepts per-generation records.
type RecordWriter interface {
	WriteGeneration(GenerationRecord) error
	WriteNetwork(NetworkRecord) error
}

// Multi fans records out to several writers. Every writer sees every record;
// errors are joined.
type Multi []RecordWriter

// WriteGeneration forwards rec to every writer.
func (m Multi) WriteGeneration(rec GenerationRecord) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteGeneration(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteNetwork forwards rec to every writer.
func (m Multi) WriteNetwork(rec NetworkRecord) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteNetwork(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WritePerf forwards rec to every writer that accepts phase timings.
func (m Multi) WritePerf(rec PerfRecord) error {
	var errs []error
	for _, w := range m {
		pw, ok := w.(interface{ WritePerf(PerfRecord) error })
		if !ok {
			continue
		}
		if err := pw.WritePerf(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
