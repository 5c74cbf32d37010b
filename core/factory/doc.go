// Package factory instantiates pluggable backends, such as run-log stores
// and metrics sinks, from a ModuleConfig: a backend name plus a map of raw
// settings read from YAML, JSON or GB_ environment variables.
//
// A backend package owns a Registry and registers its implementations in
// init; the settings are decoded with Decode:
//
//	var stores = factory.NewRegistry[Store]()
//
//	func init() {
//		_ = stores.Register("jsonl", func(conf map[string]any) (Store, error) {
//			var o Options
//			if err := factory.Decode(conf, &o); err != nil {
//				return nil, err
//			}
//			return NewJSONLStore(o.Path)
//		})
//	}
package factory
