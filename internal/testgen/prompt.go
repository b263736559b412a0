// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testgen

import "strings"

// NoContext context 为空时写入 prompt 的占位文本
const NoContext = "No additional context."

// multiShotExamples 固定的示例用例，引导模型输出相同格式
const multiShotExamples = `

  Example 1:
  Feature: Source, Destination, and Date Selection
  Test Case 1:
    - Pre-conditions: The user is on the home screen of the Red Bus mobile app.
    - Step-by-step instructions:
      1. Open the Red Bus app on your mobile device.
      2. On the home screen, tap on the "From" field and enter the source location.
      3. Tap on the "To" field and enter the destination location.
      4. Tap on the "Date" field and select the travel date.
      5. Confirm the source, destination, and date selections.
    - Expected result: The app should correctly display the selected source, destination, and date, and allow the user to proceed to the bus selection screen.

  Example 2:
  Feature: Bus Selection
  Test Case 2:
    - Pre-conditions: The user has selected source, destination, and travel date.
    - Step-by-step instructions:
      1. After selecting the source, destination, and date, the user is directed to the bus selection screen.
      2. Scroll through the list of available buses.
      3. Select a bus by tapping on the bus name or details.
    - Expected result: The app should display a list of available buses for the selected route and allow the user to view details and select a specific bus.

  Example 3:
  Feature: Seat Selection
  Test Case 3:
    - Pre-conditions: The user has selected a bus from the available list.
    - Step-by-step instructions:
      1. After selecting a bus, navigate to the seat selection screen.
      2. View the seat map and select an available seat by tapping on it.
      3. Confirm the seat selection.
    - Expected result: The app should allow the user to select an available seat and confirm the selection, with the selected seat visually highlighted.

  Example 4:
  Feature: Pick-up and Drop-off Point Selection
  Test Case 4:
    - Pre-conditions: The user has selected a seat on the bus.
    - Step-by-step instructions:
      1. After selecting a seat, proceed to the pick-up and drop-off point selection screen.
      2. Choose a pick-up point from the available options.
      3. Choose a drop-off point from the available options.
      4. Confirm the pick-up and drop-off points.
    - Expected result: The app should allow the user to select valid pick-up and drop-off points and confirm the selection.

  Example 5:
  Feature: Offers and Promotions
  Test Case 5:
    - Pre-conditions: The user has navigated to the payment screen.
    - Step-by-step instructions:
      1. After selecting the pick-up and drop-off points, proceed to the payment screen.
      2. Look for available offers or discounts on the payment screen.
      3. Apply any valid offers by entering the promo code or selecting an available offer.
    - Expected result: The app should display applicable offers and allow the user to apply them successfully.

  Example 6:
  Feature: Filters for Bus Selection
  Test Case 6:
    - Pre-conditions: The user is on the bus selection screen.
    - Step-by-step instructions:
      1. On the bus selection screen, locate the filter options (e.g., time, price, amenities).
      2. Apply a filter (e.g., filter buses by time or price).
      3. Confirm that the list of buses updates based on the selected filter.
    - Expected result: The app should update the list of available buses according to the selected filters.

  Example 7:
  Feature: Bus Information
  Test Case 7:
    - Pre-conditions: The user is viewing a specific bus on the bus selection screen.
    - Step-by-step instructions:
      1. Select a bus from the available list.
      2. Tap on the "Bus Information" section to view details about the bus.
      3. Check for bus amenities, photos, and user reviews.
    - Expected result: The app should display detailed information about the selected bus, including amenities, photos, and user reviews.
  
`

// BuildPrompt 将截图描述与上下文拼接进固定的 multi-shot 模板。
// 纯函数：相同输入总是得到相同输出，不做任何转义。
func BuildPrompt(captions []string, context string) string {
	if context == "" {
		context = NoContext
	}
	var sb strings.Builder
	sb.WriteString(multiShotExamples)
	sb.WriteString("  Captions: ")
	sb.WriteString(strings.Join(captions, "\n"))
	sb.WriteString("\n  Context: ")
	sb.WriteString(context)
	sb.WriteString("\n\n  Provide the test cases below:")
	return sb.String()
}
