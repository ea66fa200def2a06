// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_KeepsFirstInsertionOrder(t *testing.T) {
	m := New[string, int]()
	m.Set("zeta", 1)
	m.Set("alpha", 2)
	m.Set("mid", 3)
	m.Set("zeta", 4)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	v, ok := m.Get("zeta")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestMap_Delete(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)

	m.Delete("b")
	m.Delete("missing")
	assert.Equal(t, []string{"a", "c"}, m.Keys())
	assert.Equal(t, 2, m.Len())

	_, ok := m.Get("b")
	assert.False(t, ok)

	m.Set("b", 5)
	assert.Equal(t, []string{"a", "c", "b"}, m.Keys(), "a re-added key goes last")
}

func TestMap_All(t *testing.T) {
	m := New[string, int]()
	m.Set("x", 1)
	m.Set("y", 2)
	m.Set("z", 3)

	var keys []string
	var sum int
	for k, v := range m.All() {
		keys = append(keys, k)
		sum += v
	}
	assert.Equal(t, []string{"x", "y", "z"}, keys)
	assert.Equal(t, 6, sum)

	var first []string
	for k := range m.All() {
		first = append(first, k)
		break
	}
	assert.Equal(t, []string{"x"}, first)
}

func TestMap_KeysIsACopy(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	keys := m.Keys()
	keys[0] = "changed"
	assert.Equal(t, []string{"a"}, m.Keys())
}
