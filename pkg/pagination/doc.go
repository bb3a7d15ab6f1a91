// Package pagination turns an offset-paged feature service into a complete,
// ordered local dataset: it partitions a resolved feature count into page
// windows, executes the windows under bounded concurrency and reassembles
// the batches in offset order, reconciling the delivered total against the
// expected count.
//
// Completion order across workers is unconstrained; assembly always reorders
// by window offset, so callers never observe out-of-order features. A fatal
// window failure stops dispatch of new windows, lets in-flight windows
// finish and surfaces the partial result on the error.
package pagination
