package service

import (
	"encoding/json"

	"github.com/noah-isme/codearena-api/internal/dto"
)

// DefaultProblemCatalog returns the starter problems seeded into an empty catalog.
func DefaultProblemCatalog() []dto.CreateProblemRequest {
	return []dto.CreateProblemRequest{
		{
			Title:       "Matrix Tensor Product (Kronecker Product)",
			Description: "Given two matrices <code>a</code> and <code>b</code>, return their Kronecker product.",
			Difficulty:  "Medium",
			Topics:      "Array, Matrix, LinearAlgebra",
			Template:    "def solution(a, b):\n    pass\n",
			Inputs:      raw(`[[[1,2],[3,4]],[[0,5],[6,7]]]`, `[[[1]],[[2,3]]]`),
			Outputs:     raw(`[[0,5,0,10],[6,7,12,14],[0,15,0,20],[18,21,24,28]]`, `[[2,3]]`),
		},
		{
			Title:       "Two Sum",
			Description: "Return the indices of the two numbers in <code>nums</code> that add up to <code>target</code>.",
			Difficulty:  "Easy",
			Topics:      "Array, Hash Table",
			Template:    "def solution(nums, target):\n    pass\n",
			Inputs:      raw(`[[2,7,11,15],9]`, `[[3,2,4],6]`, `[[3,3],6]`),
			Outputs:     raw(`[0,1]`, `[1,2]`, `[0,1]`),
		},
		{
			Title:       "Add Two Numbers",
			Description: "Two non-negative integers are given as digit lists in reverse order. Return their sum in the same form.",
			Difficulty:  "Medium",
			Topics:      "Linked List, Math",
			Template:    "def solution(l1, l2):\n    pass\n",
			Inputs:      raw(`[[2,4,3],[5,6,4]]`, `[[0],[0]]`, `[[9,9,9],[1]]`),
			Outputs:     raw(`[7,0,8]`, `[0]`, `[0,0,0,1]`),
		},
		{
			Title:       "Longest Substring Without Repeating Characters",
			Description: "Return the length of the longest substring of <code>s</code> without repeating characters.",
			Difficulty:  "Medium",
			Topics:      "Hash Table, String, Sliding Window",
			Template:    "def solution(s):\n    pass\n",
			Inputs:      raw(`"abcabcbb"`, `"bbbbb"`, `"pwwkew"`, `""`),
			Outputs:     raw(`3`, `1`, `3`, `0`),
		},
		{
			Title:       "Median of Two Sorted Arrays",
			Description: "Return the median of the two sorted arrays <code>nums1</code> and <code>nums2</code>.",
			Difficulty:  "Hard",
			Topics:      "Array, Binary Search, Divide and Conquer",
			Template:    "def solution(nums1, nums2):\n    pass\n",
			Inputs:      raw(`[[1,3],[2]]`, `[[1,2],[3,4]]`),
			Outputs:     raw(`2.0`, `2.5`),
		},
	}
}

func raw(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}
