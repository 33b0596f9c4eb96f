package bloomset_test

import (
	"bytes"
	"fmt"

	"github.com/jcalabro/bloomset"
	"github.com/jcalabro/bloomset/keyhash"
)

// This example demonstrates basic bloom filter usage for membership testing.
func Example() {
	// Create a filter for 10,000 items with 1% false positive rate
	f, err := bloomset.New(10_000, 0.01)
	if err != nil {
		panic(err)
	}

	// Keys are hashed by the caller
	f.Add(keyhash.String("apple"))
	f.Add(keyhash.String("banana"))
	f.Add(keyhash.String("cherry"))

	// Test membership
	fmt.Println("apple:", f.Contains(keyhash.String("apple")))   // true (added)
	fmt.Println("banana:", f.Contains(keyhash.String("banana"))) // true (added)
	fmt.Println("grape:", f.Contains(keyhash.String("grape")))   // false (not added)

	// Output:
	// apple: true
	// banana: true
	// grape: false
}

// This example shows the summary string of a fresh filter.
func ExampleFilter_String() {
	f, err := bloomset.New(27_000, 0.0317)
	if err != nil {
		panic(err)
	}
	fmt.Println(f)

	// Output:
	// <Filter size_in_bits=193960 approx_items=0.0>
}

// This example combines filters built independently, for example by two
// crawlers sharing one dedup configuration.
func ExampleFilter_Union() {
	a, _ := bloomset.New(1000, 0.01)
	b, _ := bloomset.New(1000, 0.01)

	a.Add(keyhash.String("https://example.com/a"))
	b.Add(keyhash.String("https://example.com/b"))

	both, err := a.Union(b)
	if err != nil {
		panic(err)
	}

	fmt.Println("a:", both.Contains(keyhash.String("https://example.com/a")))
	fmt.Println("b:", both.Contains(keyhash.String("https://example.com/b")))

	sub, _ := a.IsSubset(both)
	fmt.Println("a is a subset:", sub)

	// Output:
	// a: true
	// b: true
	// a is a subset: true
}

// This example mixes single hashes, slices and filters in one update.
func ExampleFilter_Update() {
	f, _ := bloomset.New(1000, 0.01)
	other, _ := bloomset.New(1000, 0.01)
	other.Add(keyhash.String("from-other"))

	err := f.Update(
		keyhash.String("single"),
		keyhash.Strings([]string{"x", "y"}),
		other,
	)
	if err != nil {
		panic(err)
	}

	for _, key := range []string{"single", "x", "y", "from-other"} {
		fmt.Println(key, f.Contains(keyhash.String(key)))
	}

	// Output:
	// single true
	// x true
	// y true
	// from-other true
}

// This example demonstrates that combining incompatible filters fails.
func ExampleFilter_Intersection_incompatible() {
	small, _ := bloomset.New(100, 0.01)
	large, _ := bloomset.New(100_000, 0.01)

	_, err := small.Intersection(large)
	fmt.Println(err != nil)

	// Output:
	// true
}

// This example demonstrates serializing a filter for storage or transmission.
func ExampleFilter_WriteTo() {
	f, _ := bloomset.New(1000, 0.01)
	f.Add(keyhash.String("persistent-key"))

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		panic(err)
	}

	restored, err := bloomset.Load(&buf)
	if err != nil {
		panic(err)
	}

	fmt.Println("equal:", restored.Equal(f))
	fmt.Println("persistent-key:", restored.Contains(keyhash.String("persistent-key")))

	// Output:
	// equal: true
	// persistent-key: true
}

// This example shows the cardinality estimate.
func ExampleFilter_ApproxItems() {
	f, _ := bloomset.New(100_000, 0.01)
	for i := range 10_000 {
		f.Add(keyhash.String(fmt.Sprintf("item-%d", i)))
	}

	approx := f.ApproxItems()
	fmt.Println("within 2% of 10000:", approx > 9800 && approx < 10200)

	// Output:
	// within 2% of 10000: true
}
