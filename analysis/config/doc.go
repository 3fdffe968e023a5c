// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config and
Options struct types. Fields that are not set keep their default value (see [NewDefault]).
For example, a valid config file is as follows:

	log-level: 4
	alloc-never-fails: true
	pipeline:
	  - explicit-consdes
	  - initialize-uninitialized
	  - delete-undefined
	  - find-exits
	leave-alone:
	  - my_runtime_hook

# Policies

Some passes have two variants selected by an option rather than by a different pass name in the pipeline:
undefined-retval-nosym selects delete-undefined-nosym and alloc-never-fails selects instrument-alloc-nf. The
variant names can also be used directly in the pipeline.
*/
package config
