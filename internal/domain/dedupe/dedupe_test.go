package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	dedupe "github.com/apexsports/shotform/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should have default configuration", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When creating a deduper with custom options", func() {
			d := dedupe.NewInMemoryDeduper(
				dedupe.WithMaxSize(100),
			)

			Convey("Then it should have custom configuration", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording shots", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the shot is new", func() {
				seen := d.SeenAndRecord(context.Background(), "shot-1")

				Convey("Then it should return false and record the shot", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the shot was already seen", func() {
				// First time
				d.SeenAndRecord(context.Background(), "shot-1")

				// Second time
				seen := d.SeenAndRecord(context.Background(), "shot-1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And multiple shots are recorded", func() {
				shots := []string{"shot-1", "shot-2", "shot-3", "shot-4", "shot-5"}

				for _, shot := range shots {
					seen := d.SeenAndRecord(context.Background(), shot)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all shots should be recorded", func() {
					So(d.Size(), ShouldEqual, int64(len(shots)))

					// Check that all shots are seen
					for _, shot := range shots {
						seen := d.SeenAndRecord(context.Background(), shot)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})

		Convey("When unrecording shots", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the shot exists", func() {
				// Record the shot
				d.SeenAndRecord(context.Background(), "shot-1")
				So(d.Size(), ShouldEqual, 1)

				// Unrecord the shot
				d.Unrecord(context.Background(), "shot-1")

				Convey("Then it should be removed", func() {
					So(d.Size(), ShouldEqual, 0)

					// Should not be seen anymore
					seen := d.SeenAndRecord(context.Background(), "shot-1")
					So(seen, ShouldBeFalse)
				})
			})

			Convey("And the shot doesn't exist", func() {
				// Try to unrecord non-existent shot
				d.Unrecord(context.Background(), "nonexistent")

				Convey("Then it should not affect the size", func() {
					So(d.Size(), ShouldEqual, 0)
				})
			})

			Convey("And multiple shots are unrecorded", func() {
				shots := []string{"shot-1", "shot-2", "shot-3"}

				// Record all shots
				for _, shot := range shots {
					d.SeenAndRecord(context.Background(), shot)
				}
				So(d.Size(), ShouldEqual, int64(len(shots)))

				// Unrecord all shots
				for _, shot := range shots {
					d.Unrecord(context.Background(), shot)
				}

				Convey("Then all shots should be removed", func() {
					So(d.Size(), ShouldEqual, 0)

					// Check that none are seen
					for _, shot := range shots {
						seen := d.SeenAndRecord(context.Background(), shot)
						So(seen, ShouldBeFalse)
					}
				})
			})
		})

		Convey("When using bounded mode with eviction", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

			Convey("And the deduper is at capacity", func() {
				// Fill to capacity
				shots := []string{"shot-1", "shot-2", "shot-3"}
				for _, shot := range shots {
					seen := d.SeenAndRecord(context.Background(), shot)
					So(seen, ShouldBeFalse)
				}
				So(d.Size(), ShouldEqual, 3)

				// Add one more shot
				seen := d.SeenAndRecord(context.Background(), "shot-4")

				Convey("Then it should evict the oldest and add the new one", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 3)

					// The oldest shot should be evicted, so size should remain 3
					// when we try to add shot-1 again
					originalSize := d.Size()
					seen1 := d.SeenAndRecord(context.Background(), "shot-1")
					So(seen1, ShouldBeFalse)                // Should not be seen (was evicted)
					So(d.Size(), ShouldEqual, originalSize) // Size should not increase

					// The newer shots should still be seen (they were not evicted)
					// Note: Since we're calling SeenAndRecord, it will record them again
					// if they were evicted, so we need to check the size instead
					seen2 := d.SeenAndRecord(context.Background(), "shot-2")
					So(seen2, ShouldBeFalse)                // Will be recorded again if evicted
					So(d.Size(), ShouldEqual, originalSize) // Size should not increase

					seen3 := d.SeenAndRecord(context.Background(), "shot-3")
					So(seen3, ShouldBeFalse)                // Will be recorded again if evicted
					So(d.Size(), ShouldEqual, originalSize) // Size should not increase

					seen4 := d.SeenAndRecord(context.Background(), "shot-4")
					So(seen4, ShouldBeFalse)                // Will be recorded again if evicted
					So(d.Size(), ShouldEqual, originalSize) // Size should not increase
				})
			})
		})

		Convey("When using unbounded mode", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

			Convey("And many shots are recorded", func() {
				const numShots = 1000
				for i := 0; i < numShots; i++ {
					shotID := fmt.Sprintf("shot-%d", i)
					seen := d.SeenAndRecord(context.Background(), shotID)
					So(seen, ShouldBeFalse)
				}

				Convey("Then all shots should be recorded without eviction", func() {
					So(d.Size(), ShouldEqual, int64(numShots))

					// Check that all shots are seen
					for i := 0; i < numShots; i++ {
						shotID := fmt.Sprintf("shot-%d", i)
						seen := d.SeenAndRecord(context.Background(), shotID)
						So(seen, ShouldBeTrue)
					}
				})
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper with concurrent access", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1000))
		const numGoroutines = 10
		const shotsPerGoroutine = 100

		Convey("When multiple goroutines record shots concurrently", func() {
			var wg sync.WaitGroup
			errors := make(chan error, numGoroutines)

			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < shotsPerGoroutine; j++ {
						shotID := fmt.Sprintf("shot-%d-%d", goroutineID, j)
						// This should not panic or cause race conditions
						d.SeenAndRecord(context.Background(), shotID)
					}
				}(i)
			}

			wg.Wait()
			close(errors)

			Convey("Then all shots should be recorded successfully", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*shotsPerGoroutine))

				// Check for any errors
				for err := range errors {
					So(err, ShouldBeNil)
				}
			})
		})

		Convey("When multiple goroutines unrecord shots concurrently", func() {
			// First, record some shots
			const numShots = 500
			for i := 0; i < numShots; i++ {
				shotID := fmt.Sprintf("shot-%d", i)
				d.SeenAndRecord(context.Background(), shotID)
			}

			So(d.Size(), ShouldEqual, int64(numShots))

			// Now unrecord them concurrently
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(goroutineID int) {
					defer wg.Done()
					for j := 0; j < numShots/numGoroutines; j++ {
						shotID := fmt.Sprintf("shot-%d", goroutineID*(numShots/numGoroutines)+j)
						d.Unrecord(context.Background(), shotID)
					}
				}(i)
			}

			wg.Wait()

			Convey("Then all shots should be unrecorded successfully", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given a deduper with edge cases", t, func() {
		Convey("When recording empty string", func() {
			d := dedupe.NewInMemoryDeduper()

			seen := d.SeenAndRecord(context.Background(), "")

			Convey("Then it should handle empty string", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Should be seen on second call
				seen2 := d.SeenAndRecord(context.Background(), "")
				So(seen2, ShouldBeTrue)
			})
		})

		Convey("When recording very long strings", func() {
			d := dedupe.NewInMemoryDeduper()

			longString := strings.Repeat("a", 10000)
			seen := d.SeenAndRecord(context.Background(), longString)

			Convey("Then it should handle long strings", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Should be seen on second call
				seen2 := d.SeenAndRecord(context.Background(), longString)
				So(seen2, ShouldBeTrue)
			})
		})

		Convey("When using nil context", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should not panic", func() {
				So(func() { d.SeenAndRecord(nil, "shot-1") }, ShouldNotPanic)
				So(func() { d.Unrecord(nil, "shot-1") }, ShouldNotPanic)
			})
		})

		Convey("When using very small max size", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(1))

			Convey("And adding multiple shots", func() {
				// First shot
				seen1 := d.SeenAndRecord(context.Background(), "shot-1")
				So(seen1, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// Second shot should evict the first
				seen2 := d.SeenAndRecord(context.Background(), "shot-2")
				So(seen2, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)

				// First shot should not be seen (was evicted), so size should remain 1
				// when we try to add shot-1 again
				originalSize := d.Size()
				seen1Again := d.SeenAndRecord(context.Background(), "shot-1")
				So(seen1Again, ShouldBeFalse)
				So(d.Size(), ShouldEqual, originalSize) // Size should not increase

				// Second shot should still be seen
				// Note: Since we're calling SeenAndRecord, it will record it again
				// if it was evicted, so we need to check the size instead
				seen2Again := d.SeenAndRecord(context.Background(), "shot-2")
				So(seen2Again, ShouldBeFalse)           // Will be recorded again if evicted
				So(d.Size(), ShouldEqual, originalSize) // Size should not increase
			})
		})

		Convey("When using negative max size", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

			Convey("Then it should be unbounded", func() {
				const numShots = 1000
				for i := 0; i < numShots; i++ {
					shotID := fmt.Sprintf("shot-%d", i)
					seen := d.SeenAndRecord(context.Background(), shotID)
					So(seen, ShouldBeFalse)
				}

				So(d.Size(), ShouldEqual, int64(numShots))
			})
		})
	})
}

func TestDedupeOptions(t *testing.T) {
	Convey("Given dedupe options", t, func() {
		Convey("When using WithMaxSize", func() {
			Convey("Then it should set the max size", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(500))
				So(d, ShouldNotBeNil)
			})

			Convey("And when max size is zero", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
				So(d, ShouldNotBeNil)
			})

			Convey("And when max size is negative", func() {
				d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-100))
				So(d, ShouldNotBeNil)
			})
		})

		// Removed tests for unused options: WithEvictionPolicy, WithTTL, WithMetrics, WithCleanupInterval
	})
}
