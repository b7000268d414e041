package dataset

// datasetSchema validates the on-disk dataset document before any field is
// extracted, so loader errors name the offending path instead of panicking
// halfway through a partially read structure.
const datasetSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "cells", "genes", "expression"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "cells": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "genes": {
      "type": "array",
      "minItems": 1,
      "items": {"type": "string", "minLength": 1}
    },
    "expression": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {"type": ["number", "null"]}
      }
    },
    "embeddings": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "type": "array",
          "minItems": 1,
          "items": {"type": "number"}
        }
      }
    },
    "metadata": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["kind"],
        "properties": {
          "kind": {"enum": ["categorical", "numeric"]},
          "labels": {"type": "array", "items": {"type": ["string", "null"]}},
          "values": {"type": "array", "items": {"type": ["number", "null"]}}
        }
      }
    },
    "gene_annotations": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "biotype": {"type": "string"},
          "transcripts": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`
