// Package catalog holds the table of known packages and persists it as a
// tab-separated file.
//
// A catalog is loaded once per command, mutated in memory and written back
// with Save, which replaces the file atomically. Installed state is not
// recorded here; the catalog only lists which versions are available.
//
// Example:
//
//	cat, err := catalog.Load("metadata/packages.tsv")
//	if err != nil {
//		return err
//	}
//	d, ok := cat.Get("samtools")
//	if ok {
//		fmt.Println(d.Latest())
//	}
//	if cat.Dirty() {
//		err = cat.Save("metadata/packages.tsv")
//	}
package catalog
